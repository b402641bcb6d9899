package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zhouzirui/steward/internal/model/audio"
	modelspeech "github.com/zhouzirui/steward/internal/model/speech"
)

// recognizeGrace bounds the transcription of a partial utterance whose
// listening window has already closed.
const recognizeGrace = 5 * time.Second

// Recognizer transcribes one captured utterance.
type Recognizer interface {
	Recognize(ctx context.Context, req *modelspeech.ASRRequest) (*modelspeech.ASRResponse, error)
}

// Listener captures one utterance from the live frame stream and
// transcribes it. It satisfies the session controller's listening
// dependency.
type Listener struct {
	hub     *audio.Hub
	rec     Recognizer
	capture CaptureOptions
}

func NewListener(hub *audio.Hub, rec Recognizer, capture CaptureOptions) *Listener {
	return &Listener{hub: hub, rec: rec, capture: capture}
}

// Listen subscribes to the frame stream for the duration of one
// utterance. The context bounds the whole listening window; silence
// until it expires surfaces as ErrNoSpeech.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	frames, cancel := l.hub.Subscribe()
	defer cancel()

	samples, err := CaptureUtterance(ctx, frames, l.capture)
	if err != nil {
		return "", err
	}
	log.Printf("[speech] captured %d samples", len(samples))

	// A window closed mid-utterance still carries speech worth keeping;
	// transcribe the partial capture under its own deadline.
	recCtx := ctx
	if ctx.Err() != nil {
		var cancelRec context.CancelFunc
		recCtx, cancelRec = context.WithTimeout(context.Background(), recognizeGrace)
		defer cancelRec()
	}

	resp, err := l.rec.Recognize(recCtx, &modelspeech.ASRRequest{
		AudioData: bytes.NewReader(EncodeWAV(samples)),
		Format:    "wav",
	})
	if err != nil {
		return "", fmt.Errorf("recognize utterance: %w", err)
	}
	log.Printf("[speech] transcript: %q", resp.Text)
	return resp.Text, nil
}
