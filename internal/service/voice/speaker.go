// Package voice turns reply text into audible speech: synthesis through
// the speech gateway, playback through a local player subprocess, and
// interruption of playback in flight.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	modelspeech "github.com/zhouzirui/steward/internal/model/speech"
)

// Synthesizer is the slice of the speech service the speaker needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *modelspeech.TTSRequest) (*modelspeech.TTSResponse, error)
	Enabled() bool
}

// Speaker speaks one reply at a time. Interrupt cancels whatever is
// playing and is a safe no-op when nothing is.
type Speaker struct {
	synth  Synthesizer
	voice  string
	player []string

	mu      sync.Mutex
	cancel  context.CancelFunc
	speakID uint64
}

// NewSpeaker builds a speaker using the given player command line, e.g.
// "ffplay -nodisp -autoexit -loglevel quiet". The audio file path is
// appended as the final argument.
func NewSpeaker(synth Synthesizer, voice, playerCommand string) (*Speaker, error) {
	player := strings.Fields(playerCommand)
	if len(player) == 0 {
		return nil, errors.New("voice: empty player command")
	}
	return &Speaker{synth: synth, voice: voice, player: player}, nil
}

// Say synthesizes and plays text, blocking until playback finishes or is
// interrupted. Interruption is not an error. With the gateway disabled
// the text is logged instead of spoken so the rest of the loop still
// works on a machine with no credentials.
func (s *Speaker) Say(ctx context.Context, sessionID, text string) error {
	text = CleanForSpeech(text)
	if text == "" {
		return nil
	}
	if !s.synth.Enabled() {
		log.Printf("[voice] (muted) %s", text)
		return nil
	}

	resp, err := s.synth.Synthesize(ctx, &modelspeech.TTSRequest{
		SessionID: sessionID,
		Text:      text,
		Voice:     s.voice,
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	playCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.speakID++
	id := s.speakID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.speakID == id {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	return s.play(playCtx, resp.AudioData, resp.Format)
}

// Interrupt stops current playback. Safe to call from any goroutine at
// any time.
func (s *Speaker) Interrupt() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		log.Printf("[voice] playback interrupted")
		cancel()
	}
}

// Speaking reports whether playback is in flight.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Speaker) play(ctx context.Context, data []byte, format string) error {
	if format == "" {
		format = "mp3"
	}
	f, err := os.CreateTemp("", "steward-say-*."+format)
	if err != nil {
		return fmt.Errorf("spool audio: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("spool audio: %w", err)
	}
	f.Close()

	args := append(append([]string{}, s.player[1:]...), path)
	cmd := exec.CommandContext(ctx, s.player[0], args...)
	err = cmd.Run()
	if ctx.Err() == context.Canceled {
		return nil
	}
	if err != nil {
		return fmt.Errorf("player %s: %w", s.player[0], err)
	}
	return nil
}
