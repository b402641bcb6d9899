package wakeword

import (
	"context"
	"log"
	"time"

	"github.com/zhouzirui/steward/internal/model/audio"
	"github.com/zhouzirui/steward/internal/model/conv"
)

// Activation is one wake event. At most one is emitted per idle period;
// further detections are suppressed until the session returns to idle.
type Activation struct {
	Confidence float32   `json:"confidence"`
	At         time.Time `json:"at"`
}

// StateProbe reports the current session state. The gate uses it to
// suppress detections while a conversation is already in flight.
type StateProbe func() conv.State

// Gate runs the wake-word detector over the live frame stream and emits
// activations. It never stops scanning; suppression happens at the
// emission point so the detector's internal state stays warm.
type Gate struct {
	detector  Detector
	threshold float32
	probe     StateProbe
	frames    <-chan audio.Frame
	events    chan Activation
}

func NewGate(detector Detector, threshold float32, probe StateProbe, frames <-chan audio.Frame) *Gate {
	return &Gate{
		detector:  detector,
		threshold: threshold,
		probe:     probe,
		frames:    frames,
		events:    make(chan Activation, 1),
	}
}

// Activations is the wake event stream consumed by the session controller.
func (g *Gate) Activations() <-chan Activation {
	return g.events
}

// Run scans frames until the context ends or the frame stream closes.
func (g *Gate) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-g.frames:
			if !ok {
				return nil
			}
			g.scan(frame)
		}
	}
}

func (g *Gate) scan(frame audio.Frame) {
	triggered, confidence := g.detector.Check(frame)
	if !triggered || confidence < g.threshold {
		return
	}
	if state := g.probe(); state != conv.StateIdle {
		log.Printf("[wakeword] trigger suppressed, session %s", state)
		return
	}
	select {
	case g.events <- Activation{Confidence: confidence, At: time.Now()}:
		log.Printf("[wakeword] activation, confidence %.2f", confidence)
	default:
		// A pending activation the controller has not consumed yet
		// already covers this detection.
	}
}
