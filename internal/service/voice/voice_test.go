package voice

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	modelspeech "github.com/zhouzirui/steward/internal/model/speech"
)

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Very good, sir.", "Very good, sir."},
		{"emphasis", "That is *quite* important.", "That is quite important."},
		{"heading", "# Status\nAll systems nominal.", "Status\nAll systems nominal."},
		{"link", "See [the docs](https://example.com) for details.", "See the docs for details."},
		{"inline code", "Run `uptime` to check.", "Run uptime to check."},
		{"code block dropped", "Here you are, sir.\n```python\nprint('hi')\n```\nAnything else?", "Here you are, sir.\n\nAnything else?"},
		{"bullets", "- first\n- second", "first\nsecond"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanForSpeech(tt.in); got != tt.want {
				t.Fatalf("CleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fakeSynth struct {
	enabled bool
	called  bool
	text    string
}

func (f *fakeSynth) Enabled() bool { return f.enabled }

func (f *fakeSynth) Synthesize(_ context.Context, req *modelspeech.TTSRequest) (*modelspeech.TTSResponse, error) {
	f.called = true
	f.text = req.Text
	return &modelspeech.TTSResponse{AudioData: []byte("audio"), Format: "mp3"}, nil
}

func TestInterruptIdleIsNoOp(t *testing.T) {
	s, err := NewSpeaker(&fakeSynth{}, "en-GB-RyanNeural", "true")
	if err != nil {
		t.Fatalf("NewSpeaker: %v", err)
	}
	// Nothing playing, must not panic or block.
	s.Interrupt()
	s.Interrupt()
	if s.Speaking() {
		t.Fatal("Speaking() = true with no playback")
	}
}

func TestSayMutedWhenDisabled(t *testing.T) {
	synth := &fakeSynth{enabled: false}
	s, err := NewSpeaker(synth, "en-GB-RyanNeural", "true")
	if err != nil {
		t.Fatalf("NewSpeaker: %v", err)
	}
	if err := s.Say(context.Background(), "sess", "Good evening, sir."); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if synth.called {
		t.Fatal("synthesizer invoked while disabled")
	}
}

func TestSaySkipsEmptyAfterCleaning(t *testing.T) {
	synth := &fakeSynth{enabled: true}
	s, err := NewSpeaker(synth, "en-GB-RyanNeural", "true")
	if err != nil {
		t.Fatalf("NewSpeaker: %v", err)
	}
	if err := s.Say(context.Background(), "sess", "```\ncode only\n```"); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if synth.called {
		t.Fatal("synthesizer invoked for silent reply")
	}
}

func TestSayCleansBeforeSynthesis(t *testing.T) {
	synth := &fakeSynth{enabled: true}
	// /bin/true exits immediately so playback completes at once.
	s, err := NewSpeaker(synth, "en-GB-RyanNeural", "true")
	if err != nil {
		t.Fatalf("NewSpeaker: %v", err)
	}
	if err := s.Say(context.Background(), "sess", "It is **done**, sir."); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if strings.Contains(synth.text, "*") {
		t.Fatalf("markdown reached the synthesizer: %q", synth.text)
	}
}

func spoolFiles(t *testing.T) map[string]bool {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(os.TempDir(), "steward-say-*"))
	if err != nil {
		t.Fatalf("glob spool files: %v", err)
	}
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

func TestInterruptCancelsPlaybackAndReleasesSpool(t *testing.T) {
	synth := &fakeSynth{enabled: true}
	// tail -f never exits on its own, so playback blocks until cancelled.
	s, err := NewSpeaker(synth, "en-GB-RyanNeural", "tail -f")
	if err != nil {
		t.Fatalf("NewSpeaker: %v", err)
	}

	before := spoolFiles(t)

	done := make(chan error, 1)
	go func() {
		done <- s.Say(context.Background(), "sess", "One moment, sir.")
	}()

	deadline := time.After(2 * time.Second)
	for !s.Speaking() {
		select {
		case err := <-done:
			t.Fatalf("Say returned before playback started: %v", err)
		case <-deadline:
			t.Fatal("playback never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Interrupt()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Say after Interrupt: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Say did not return after Interrupt")
	}
	if s.Speaking() {
		t.Fatal("Speaking() = true after interrupted playback")
	}
	for p := range spoolFiles(t) {
		if !before[p] {
			t.Fatalf("spool file leaked: %s", p)
		}
	}
}

func TestNewSpeakerRejectsEmptyPlayer(t *testing.T) {
	if _, err := NewSpeaker(&fakeSynth{}, "en-GB-RyanNeural", "  "); err == nil {
		t.Fatal("expected error for empty player command")
	}
}
