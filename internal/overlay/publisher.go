package overlay

import (
	"sync"
	"time"
)

// queueDepth bounds the pending status queue. The widget only ever needs
// recent frames; old ones are dropped first.
const queueDepth = 16

// Publisher decouples the session loop from widget delivery. Publish
// never blocks: with no hub draining, the oldest frame is discarded.
type Publisher struct {
	mu      sync.Mutex
	queue   chan Status
	current Status
	closed  bool
}

func NewPublisher() *Publisher {
	p := &Publisher{queue: make(chan Status, queueDepth)}
	p.current = Idle()
	return p
}

// Publish records a status frame.
func (p *Publisher) Publish(s Status) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.current = s
	for {
		select {
		case p.queue <- s:
			return
		default:
			// Full: drop the oldest frame and retry.
			select {
			case <-p.queue:
			default:
			}
		}
	}
}

// Current returns the latest published status, for late-joining widgets.
func (p *Publisher) Current() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Frames is the delivery channel the hub drains.
func (p *Publisher) Frames() <-chan Status {
	return p.queue
}

// Close stops accepting frames and releases the queue.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
}
