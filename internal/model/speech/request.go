package speech

import "io"

// ASRRequest carries one complete utterance to the recognition boundary.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, pcm
	Language  string    `json:"language"` // en-US, zh-CN, etc.
}

// TTSRequest asks the synthesis boundary to render text as audio.
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float32 `json:"speed"`  // rate multiplier 0.5-2.0
	Volume    float32 `json:"volume"` // 0.0-1.0
	Format    string  `json:"format"` // mp3, wav
	Language  string  `json:"language"`
}
