package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/steward/internal/config"
	"github.com/zhouzirui/steward/internal/model/audio"
	"github.com/zhouzirui/steward/internal/model/speech"
)

// asrChunkSize is how much audio goes out per websocket message: 100ms
// of 16-bit mono at the capture rate.
const asrChunkSize = audio.SampleRate / 10 * 2

// GatewayClient talks to the speech gateway over websocket, one
// connection per request.
type GatewayClient struct {
	cfg    config.Speech
	dialer *websocket.Dialer
}

func NewGatewayClient(cfg config.Speech) *GatewayClient {
	return &GatewayClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

type asrStartMessage struct {
	Type      string `json:"type"` // "start"
	RequestID string `json:"requestId"`
	Format    string `json:"format"`
	Rate      int    `json:"rate"`
	Bits      int    `json:"bits"`
	Channels  int    `json:"channels"`
	Language  string `json:"language"`
}

type asrResultMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Final   bool   `json:"final"`
	Result  struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audioInfo,omitempty"`
}

func (c *GatewayClient) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	h.Set("X-App-Id", c.cfg.AppID)
	return h
}

func (c *GatewayClient) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, url, c.authHeader())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}
	return conn, nil
}

// Recognize streams one utterance to the gateway and returns the final
// transcript.
func (c *GatewayClient) Recognize(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	conn, err := c.dial(ctx, c.cfg.ASRURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	requestID := uuid.New().String()
	start := asrStartMessage{
		Type:      "start",
		RequestID: requestID,
		Format:    req.Format,
		Rate:      audio.SampleRate,
		Bits:      16,
		Channels:  audio.Channels,
		Language:  req.Language,
	}
	if err := conn.WriteJSON(start); err != nil {
		return nil, fmt.Errorf("send asr config: %w", err)
	}

	buf := make([]byte, asrChunkSize)
	for {
		n, readErr := req.AudioData.Read(buf)
		if n > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return nil, fmt.Errorf("send audio chunk: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read audio: %w", readErr)
		}
	}
	if err := conn.WriteJSON(map[string]string{"type": "end", "requestId": requestID}); err != nil {
		return nil, fmt.Errorf("send asr end: %w", err)
	}

	for {
		var msg asrResultMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read asr result: %w", err)
		}
		if msg.Code != 0 {
			return nil, fmt.Errorf("asr error %d: %s", msg.Code, msg.Message)
		}
		if !msg.Final {
			continue
		}
		return &speech.ASRResponse{
			SessionID:  req.SessionID,
			Text:       msg.Result.Text,
			Confidence: msg.Result.Confidence,
			Duration:   msg.AudioInfo.Duration,
			RequestID:  requestID,
			CreatedAt:  time.Now(),
		}, nil
	}
}

type ttsStartMessage struct {
	Type      string  `json:"type"` // "start"
	RequestID string  `json:"requestId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed,omitempty"`
	Volume    float32 `json:"volume,omitempty"`
	Format    string  `json:"format"`
	Language  string  `json:"language,omitempty"`
}

type ttsControlMessage struct {
	Type     string `json:"type"`
	Code     int    `json:"code"`
	Message  string `json:"message,omitempty"`
	Duration int64  `json:"duration,omitempty"`
}

// Synthesize renders text through the gateway. Audio arrives as binary
// frames, terminated by a JSON end message.
func (c *GatewayClient) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	conn, err := c.dial(ctx, c.cfg.TTSURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	requestID := uuid.New().String()
	start := ttsStartMessage{
		Type:      "start",
		RequestID: requestID,
		Text:      req.Text,
		Voice:     req.Voice,
		Speed:     req.Speed,
		Volume:    req.Volume,
		Format:    req.Format,
		Language:  req.Language,
	}
	if err := conn.WriteJSON(start); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	var (
		data     []byte
		duration int64
	)
	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read tts stream: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			data = append(data, payload...)
			continue
		}
		var ctrl ttsControlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			return nil, fmt.Errorf("decode tts control: %w", err)
		}
		if ctrl.Code != 0 {
			return nil, fmt.Errorf("tts error %d: %s", ctrl.Code, ctrl.Message)
		}
		if ctrl.Type == "end" {
			duration = ctrl.Duration
			break
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("tts returned no audio for request %s", requestID)
	}
	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: data,
		Duration:  duration,
		Format:    req.Format,
		RequestID: requestID,
		CreatedAt: time.Now(),
	}, nil
}
