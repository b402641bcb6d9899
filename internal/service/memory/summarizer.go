package memory

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/steward/internal/model/conv"
)

const summarySystemPrompt = "Summarize this conversation in 2-3 sentences. " +
	"Focus on key facts, user preferences, and ongoing topics. Be concise."

const summaryUserPrompt = "Conversation to summarize:\n{conversation}"

// ChainSummarizer 使用大模型压缩历史对话，并在模型不可用时回退到朴素摘要。
type ChainSummarizer struct {
	enabled  bool
	runnable compose.Runnable[map[string]any, *schema.Message]
}

// NewChainSummarizer compiles the summary chain. A nil chatModel yields a
// summarizer that only produces the naive digest.
func NewChainSummarizer(ctx context.Context, chatModel model.ChatModel) (*ChainSummarizer, error) {
	s := &ChainSummarizer{enabled: chatModel != nil}
	if !s.enabled {
		return s, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(summarySystemPrompt),
		schema.UserMessage(summaryUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary chain: %w", err)
	}
	s.runnable = runnable
	return s, nil
}

// Summarize condenses turns into a short synopsis. Model failures fall back
// to the naive digest rather than surfacing an error to the caller.
func (s *ChainSummarizer) Summarize(ctx context.Context, turns []conv.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("nothing to summarize")
	}
	if !s.enabled {
		return naiveDigest(turns), nil
	}

	input := map[string]any{"conversation": formatTurns(turns)}
	msg, err := s.runnable.Invoke(ctx, input)
	if err != nil {
		log.Printf("[memory] summary chain invoke failed, using naive digest: %v", err)
		return naiveDigest(turns), nil
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return naiveDigest(turns), nil
	}
	return text, nil
}

func formatTurns(turns []conv.Turn) string {
	var builder strings.Builder
	for i, turn := range turns {
		builder.WriteString(string(turn.Role))
		builder.WriteString(": ")
		builder.WriteString(strings.TrimSpace(turn.Content))
		if i < len(turns)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// naiveDigest keeps the first clause of each turn, bounded, so the window
// still shrinks when no model is configured.
func naiveDigest(turns []conv.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if idx := strings.IndexAny(content, ".!?\n"); idx > 0 {
			content = content[:idx+1]
		}
		if len(content) > 80 {
			content = content[:80]
		}
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Role, content))
	}
	digest := strings.Join(parts, " | ")
	if len(digest) > 600 {
		digest = digest[:600]
	}
	return digest
}
