package speech

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/zhouzirui/steward/internal/model/audio"
	modelspeech "github.com/zhouzirui/steward/internal/model/speech"
)

type fakeRecognizer struct {
	text     string
	ctxErr   error
	wavBytes int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req *modelspeech.ASRRequest) (*modelspeech.ASRResponse, error) {
	f.ctxErr = ctx.Err()
	wav, err := io.ReadAll(req.AudioData)
	if err != nil {
		return nil, err
	}
	f.wavBytes = len(wav)
	return &modelspeech.ASRResponse{Text: f.text}, nil
}

func publish(hub *audio.Hub, groups ...[]audio.Frame) {
	for _, g := range groups {
		for _, f := range g {
			hub.Publish(f)
		}
	}
}

func TestListenTranscribesUtterance(t *testing.T) {
	hub := audio.NewHub()
	defer hub.Close()
	rec := &fakeRecognizer{text: "open chrome"}
	l := NewListener(hub, rec, testOptions())

	done := make(chan struct{})
	var text string
	var err error
	go func() {
		defer close(done)
		text, err = l.Listen(context.Background())
	}()

	time.Sleep(50 * time.Millisecond) // let Listen subscribe
	publish(hub,
		frameOf(50, 100), // calibration
		frameOf(9000, 300),
		frameOf(50, 300), // trailing silence ends it
	)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return")
	}
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "open chrome" {
		t.Fatalf("text = %q", text)
	}
}

func TestListenTranscribesPartialAfterWindowCloses(t *testing.T) {
	hub := audio.NewHub()
	defer hub.Close()
	rec := &fakeRecognizer{text: "partial"}
	l := NewListener(hub, rec, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var text string
	var err error
	go func() {
		defer close(done)
		text, err = l.Listen(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	publish(hub,
		frameOf(50, 100), // calibration
		frameOf(9000, 300),
	)
	time.Sleep(100 * time.Millisecond) // mid-utterance, no trailing silence yet
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return")
	}
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if text != "partial" {
		t.Fatalf("text = %q", text)
	}
	if rec.ctxErr != nil {
		t.Fatalf("recognizer saw a dead context: %v", rec.ctxErr)
	}
	if rec.wavBytes <= 44 { // more than a bare RIFF header
		t.Fatal("recognizer received no audio")
	}
}
