package brain

import (
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/steward/internal/model/conv"
)

// HistoryMessages renders ledger turns as model messages. Summary turns
// and plain turns both ride along as their recorded role; tool turns are
// folded into assistant content so backends without tool history support
// still see the outcome.
func HistoryMessages(turns []conv.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case conv.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case conv.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		case conv.RoleTool:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
