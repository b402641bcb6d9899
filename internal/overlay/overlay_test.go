package overlay

import (
	"context"
	"testing"
	"time"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
)

func TestPublishNeverBlocks(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more frames than the queue holds, nobody draining.
		for i := 0; i < queueDepth*10; i++ {
			p.Publish(Status{StatusText: "frame", Color: sentiment.ColorCyan})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a full queue")
	}
}

func TestPublisherDropsOldestKeepsNewest(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	for i := 0; i < queueDepth+5; i++ {
		p.Publish(Status{StatusText: string(rune('a' + i))})
	}
	if got := p.Current().StatusText; got != string(rune('a'+queueDepth+4)) {
		t.Fatalf("Current = %q, want newest frame", got)
	}

	// Drain what survived; the newest frame must be among it.
	var last Status
	for {
		select {
		case f := <-p.Frames():
			last = f
		default:
			if last.StatusText != p.Current().StatusText {
				t.Fatalf("newest frame lost: last=%q current=%q", last.StatusText, p.Current().StatusText)
			}
			return
		}
	}
}

func TestHubDeliversToAttachedWidgets(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	h := NewHub(p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	frames, detach := h.Attach()
	defer detach()

	// First frame is the current status for late joiners.
	first := <-frames
	if first.StatusText != Idle().StatusText {
		t.Fatalf("first frame = %q, want idle", first.StatusText)
	}

	p.Publish(Status{StatusText: "Listening...", Color: sentiment.ColorCyan, IsActive: true})
	select {
	case f := <-frames:
		if f.StatusText != "Listening..." || !f.IsActive {
			t.Fatalf("frame = %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never delivered")
	}
}

func TestHubDropsStalledWidget(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	h := NewHub(p)

	frames, detach := h.Attach()
	defer detach()

	// Never drain: overflow the client buffer.
	for i := 0; i < clientBuffer+2; i++ {
		h.broadcast(Status{StatusText: "x"})
	}

	// The channel must be closed rather than wedging broadcast.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stalled widget channel never closed")
		}
	}
}
