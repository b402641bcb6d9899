package speech

import "time"

// ASRResponse is the recognized text for one utterance.
type ASRResponse struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Duration   int64     `json:"duration"` // milliseconds
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TTSResponse holds the synthesized audio for one reply.
type TTSResponse struct {
	SessionID string    `json:"sessionId"`
	AudioData []byte    `json:"-"`
	Duration  int64     `json:"duration"` // milliseconds
	Format    string    `json:"format"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
