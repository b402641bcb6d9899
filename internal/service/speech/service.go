package speech

import (
	"bytes"
	"context"
	"errors"

	"github.com/zhouzirui/steward/internal/config"
	"github.com/zhouzirui/steward/internal/model/speech"
)

// ErrDisabled means no gateway credentials are configured.
var ErrDisabled = errors.New("speech: gateway not configured")

// Service fronts the speech gateway for the rest of the app.
type Service struct {
	cfg     config.Speech
	gateway *GatewayClient
}

func NewService(cfg config.Speech) *Service {
	return &Service{
		cfg:     cfg,
		gateway: NewGatewayClient(cfg),
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Recognize transcribes one utterance.
func (s *Service) Recognize(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	if req.Language == "" {
		req.Language = s.cfg.Language
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gateway.Recognize(ctx, req)
}

// Synthesize renders reply text to audio.
func (s *Service) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	if req.Language == "" {
		req.Language = s.cfg.Language
	}
	if req.Format == "" {
		req.Format = "mp3"
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.gateway.Synthesize(ctx, req)
}

// TranscribePCM recognizes raw samples, for callers that never build a
// request themselves (the wake-word fallback path).
func (s *Service) TranscribePCM(ctx context.Context, samples []int16) (string, error) {
	resp, err := s.Recognize(ctx, &speech.ASRRequest{
		AudioData: bytes.NewReader(EncodeWAV(samples)),
		Format:    "wav",
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}
