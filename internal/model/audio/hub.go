package audio

import (
	"sync"
)

// subscriberBuffer bounds each subscriber channel. A consumer that stalls
// loses frames rather than backing up the capture path.
const subscriberBuffer = 64

// Hub fans captured frames out to subscribers. The wake-word gate holds a
// permanent subscription; utterance capture subscribes for the lifetime of
// one listening window.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Frame
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Frame)}
}

// Publish delivers a frame to every subscriber. Slow subscribers are
// skipped, never waited on.
func (h *Hub) Publish(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// Subscribe registers a new frame consumer. The cancel function must be
// called when the consumer is done; it closes the returned channel.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Frame, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Close tears down all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
