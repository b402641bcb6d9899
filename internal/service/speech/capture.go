package speech

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zhouzirui/steward/internal/model/audio"
)

// ErrNoSpeech means the listening window closed without the user saying
// anything above the ambient noise floor.
var ErrNoSpeech = errors.New("speech: no speech detected")

// CaptureOptions tunes one utterance capture.
type CaptureOptions struct {
	// Calibration is how much leading audio establishes the ambient
	// noise floor before listening starts.
	Calibration time.Duration
	// TrailingSilence ends the utterance once this much quiet follows
	// speech.
	TrailingSilence time.Duration
	// MaxUtterance caps how long a single utterance may run.
	MaxUtterance time.Duration
}

func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Calibration:     500 * time.Millisecond,
		TrailingSilence: 1200 * time.Millisecond,
		MaxUtterance:    30 * time.Second,
	}
}

// thresholdMargin is added on top of the measured ambient floor so room
// hum never counts as speech.
const thresholdMargin = 250

// CaptureUtterance reads frames until one utterance is bounded by
// silence. The energy threshold adapts to ambient noise measured at the
// start of the window. Cancel the context to abort; context expiry before
// any speech reports ErrNoSpeech.
func CaptureUtterance(ctx context.Context, frames <-chan audio.Frame, opts CaptureOptions) ([]int16, error) {
	threshold, err := calibrate(ctx, frames, opts.Calibration)
	if err != nil {
		return nil, err
	}
	log.Printf("[speech] listening, energy threshold %.0f", threshold)

	var (
		utterance []int16
		speaking  bool
		quiet     time.Duration
		spoken    time.Duration
	)
	for {
		select {
		case <-ctx.Done():
			if speaking {
				return utterance, nil
			}
			return nil, ErrNoSpeech
		case frame, ok := <-frames:
			if !ok {
				if speaking {
					return utterance, nil
				}
				return nil, ErrNoSpeech
			}
			loud := frame.RMS() >= threshold
			if !speaking {
				if !loud {
					continue
				}
				speaking = true
			}
			utterance = append(utterance, frame.Samples...)
			spoken += frame.Duration()
			if loud {
				quiet = 0
			} else {
				quiet += frame.Duration()
				if quiet >= opts.TrailingSilence {
					return utterance, nil
				}
			}
			if spoken >= opts.MaxUtterance {
				log.Printf("[speech] utterance cap reached at %s", spoken)
				return utterance, nil
			}
		}
	}
}

// calibrate measures the ambient RMS over the calibration window and
// derives the speech threshold from it.
func calibrate(ctx context.Context, frames <-chan audio.Frame, window time.Duration) (float64, error) {
	var (
		peak     float64
		measured time.Duration
	)
	for measured < window {
		select {
		case <-ctx.Done():
			return 0, ErrNoSpeech
		case frame, ok := <-frames:
			if !ok {
				return 0, ErrNoSpeech
			}
			if rms := frame.RMS(); rms > peak {
				peak = rms
			}
			measured += frame.Duration()
		}
	}
	return peak*1.5 + thresholdMargin, nil
}
