package overlay

import (
	"context"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// clientBuffer bounds each connected widget's send queue.
const clientBuffer = 8

// Hub fans published frames out to connected widgets. A widget that
// stops draining its queue is disconnected rather than waited on.
type Hub struct {
	publisher *Publisher

	mu      sync.Mutex
	nextID  int
	clients map[int]chan Status
}

func NewHub(publisher *Publisher) *Hub {
	return &Hub{
		publisher: publisher,
		clients:   make(map[int]chan Status),
	}
}

// Run drains the publisher until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-h.publisher.Frames():
			if !ok {
				return
			}
			h.broadcast(frame)
		}
	}
}

func (h *Hub) broadcast(frame Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- frame:
		default:
			log.Printf("[overlay] widget %d stalled, dropping", id)
			delete(h.clients, id)
			close(ch)
		}
	}
}

// Attach registers a widget connection. The current status is delivered
// first so late joiners render immediately.
func (h *Hub) Attach() (<-chan Status, func()) {
	ch := make(chan Status, clientBuffer)
	ch <- h.publisher.Current()

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.clients[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.clients[id]; ok {
			delete(h.clients, id)
			close(c)
		}
	}
}

// ServeConn streams frames to one websocket widget until it disconnects
// or the context ends.
func (h *Hub) ServeConn(ctx context.Context, conn *websocket.Conn) {
	frames, detach := h.Attach()
	defer detach()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("[overlay] widget write failed: %v", err)
				return
			}
		}
	}
}
