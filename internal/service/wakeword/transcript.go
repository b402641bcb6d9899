package wakeword

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/steward/internal/model/audio"
)

// Transcriber is the slice of the speech service the fallback detector
// needs: whole-clip recognition of raw PCM samples.
type Transcriber interface {
	TranscribePCM(ctx context.Context, samples []int16) (string, error)
}

// TranscriptDetector detects the trigger phrase by periodically
// transcribing short audio windows and matching the phrase as text. Used
// when no dedicated wake-word model is configured. Latency is whatever
// the recognizer takes; callers get no bound in this mode.
type TranscriptDetector struct {
	phrase      string
	transcriber Transcriber
	window      time.Duration
	timeout     time.Duration

	buf []int16
}

// energyFloor is the minimum RMS for a window to be worth transcribing.
// Silence never reaches the recognizer.
const energyFloor = 300

func NewTranscriptDetector(phrase string, t Transcriber) *TranscriptDetector {
	return &TranscriptDetector{
		phrase:      strings.ToLower(strings.TrimSpace(phrase)),
		transcriber: t,
		window:      2 * time.Second,
		timeout:     10 * time.Second,
	}
}

// Check accumulates frames and, once a full window is buffered, runs it
// through the recognizer. A window containing the trigger phrase scores
// 1, anything else 0.
func (d *TranscriptDetector) Check(frame audio.Frame) (bool, float32) {
	d.buf = append(d.buf, frame.Samples...)
	windowSamples := int(d.window.Seconds() * audio.SampleRate)
	if len(d.buf) < windowSamples {
		return false, 0
	}

	window := d.buf
	d.buf = nil

	if (audio.Frame{Samples: window}).RMS() < energyFloor {
		return false, 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	text, err := d.transcriber.TranscribePCM(ctx, window)
	if err != nil {
		log.Printf("[wakeword] fallback transcription failed: %v", err)
		return false, 0
	}
	if strings.Contains(strings.ToLower(text), d.phrase) {
		return true, 1
	}
	return false, 0
}
