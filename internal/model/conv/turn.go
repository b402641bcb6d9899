package conv

import (
	"time"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn persists one completed exchange entry. Turns are immutable once
// appended to the ledger; only the router constructs them.
type Turn struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId,omitempty"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Sentiment sentiment.Tag `json:"sentiment"`
	ToolCall  *ToolCall     `json:"toolCall,omitempty"`
	Summary   bool          `json:"summary,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
