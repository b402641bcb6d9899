package brain

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
)

// visionKeywords route an utterance to the vision path when any appears
// as a whole word.
var visionKeywords = []string{"look", "see", "screen", "describe", "read"}

const visionSystemPrompt = `You are a household assistant describing the user's screen. Answer the question about the attached screenshot briefly and concretely.`

func wantsVision(query string) bool {
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?;:'\"")
		for _, kw := range visionKeywords {
			if word == kw {
				return true
			}
		}
	}
	return false
}

// respondVision grabs a screenshot through the dispatcher and asks the
// vision backend about it. Vision replies are always neutral.
func (r *Router) respondVision(ctx context.Context, sessionID, query string) (conv.Turn, error) {
	shot := r.opts.Dispatcher.Invoke(ctx, "take_screenshot", nil)
	if shot.Failed() {
		turn := assistantTurn(sessionID,
			"I'm afraid I can't see the screen at the moment, sir.",
			sentiment.ForToolResult(true, shot.Result), &shot)
		return turn, nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(visionSystemPrompt),
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: query},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:    shot.Result,
						Detail: schema.ImageURLDetailAuto,
					},
				},
			},
		},
	}

	reply, err := r.withRetries(ctx, func(ctx context.Context) (string, error) {
		response, genErr := r.opts.VisionModel.Generate(ctx, messages)
		if genErr != nil {
			return "", genErr
		}
		return response.Content, nil
	})
	if err != nil {
		return r.apologize(sessionID), err
	}

	_, reply = sentiment.Extract(reply)
	reply = r.ghostWrite(ctx, reply)
	return assistantTurn(sessionID, reply, sentiment.Neutral, &shot), nil
}
