package brain

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/steward/internal/model/persona"
)

// conversation runs the persona-voiced chat chain.
type conversation struct {
	persona persona.Persona
	chain   compose.Runnable[map[string]any, *schema.Message]
}

func newConversation(ctx context.Context, chatModel model.ChatModel, p persona.Persona) (*conversation, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}
	return &conversation{persona: p, chain: runnable}, nil
}

func (c *conversation) reply(ctx context.Context, history []*schema.Message, query string) (string, error) {
	response, err := c.chain.Invoke(ctx, map[string]any{
		"system":  buildSystemPrompt(c.persona),
		"history": history,
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("run chat chain: %w", err)
	}
	return response.Content, nil
}
