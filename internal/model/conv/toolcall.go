package conv

// ToolStatus tracks the lifecycle of a requested action.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolSucceeded ToolStatus = "succeeded"
	ToolFailed    ToolStatus = "failed"
)

// ToolCall captures a requested action and its outcome. The router creates
// it in pending state; the dispatcher finalizes status and result exactly
// once.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Status    ToolStatus     `json:"status"`
	Result    string         `json:"result,omitempty"`
}

// Failed reports whether the call finished unsuccessfully.
func (tc *ToolCall) Failed() bool {
	return tc != nil && tc.Status == ToolFailed
}
