package conv

import "time"

// State enumerates the conversation lifecycle. Transitions are owned
// exclusively by the session state machine.
type State string

const (
	StateIdle      State = "idle"
	StateActivated State = "activated"
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
)

// Session captures one activation-to-idle conversation lifecycle. Exactly
// one live session exists per process.
type Session struct {
	ID             string    `json:"id"`
	State          State     `json:"state"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}
