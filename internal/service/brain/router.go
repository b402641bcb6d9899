// Package brain routes recognized utterances to a backend: a tool-calling
// model for actions, a conversational model for everything else, and a
// vision model when the user asks about the screen.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/model/persona"
	"github.com/zhouzirui/steward/internal/service/tools"
)

// ErrBackend wraps any model failure that survived the retry budget.
var ErrBackend = errors.New("brain: backend unavailable")

// apologyReply is spoken verbatim when every backend attempt failed.
const apologyReply = "I do apologise, sir. I seem to be having trouble thinking at the moment."

// toolSystemPrompt steers the tool-calling backend. It never speaks to
// the user directly.
const toolSystemPrompt = `You are the action-planning half of a household assistant. If the user's request maps to one of the available tools, call it with the right arguments. If no tool applies, reply with the single word PASS and nothing else.`

// Options configure a Router.
type Options struct {
	Persona            persona.Persona
	Dispatcher         *tools.Dispatcher
	Registry           *tools.Registry
	ToolModel          model.ChatModel // nil disables the tool path
	VisionModel        model.ChatModel // nil disables the vision path
	RephraseToolResult bool
	Timeout            time.Duration
	Retries            int
}

// Router is the hybrid brain. One Respond call produces exactly one
// assistant turn.
type Router struct {
	conversation *conversation
	opts         Options
}

// NewRouter compiles the conversational chain and binds the tool schema
// to the tool backend.
func NewRouter(ctx context.Context, chatModel model.ChatModel, opts Options) (*Router, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	conversation, err := newConversation(ctx, chatModel, opts.Persona)
	if err != nil {
		return nil, err
	}

	if opts.ToolModel != nil && opts.Registry != nil {
		if err := opts.ToolModel.BindTools(opts.Registry.ToolInfos()); err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
	}

	return &Router{conversation: conversation, opts: opts}, nil
}

// Respond routes one utterance and returns the assistant turn for it.
// When every backend attempt fails the returned turn is a fixed apology
// tagged as an error, alongside ErrBackend so the caller can track
// consecutive failures.
func (r *Router) Respond(ctx context.Context, sessionID string, history []*schema.Message, query string) (conv.Turn, error) {
	if r.opts.VisionModel != nil && wantsVision(query) {
		return r.respondVision(ctx, sessionID, query)
	}

	if r.opts.ToolModel != nil && r.opts.Dispatcher != nil {
		turn, handled, err := r.respondTool(ctx, sessionID, history, query)
		if err != nil {
			return r.apologize(sessionID), err
		}
		if handled {
			return turn, nil
		}
	}

	reply, err := r.withRetries(ctx, func(ctx context.Context) (string, error) {
		return r.conversation.reply(ctx, history, query)
	})
	if err != nil {
		return r.apologize(sessionID), err
	}

	reply = r.ghostWrite(ctx, reply)
	tag, spoken := sentiment.Extract(reply)
	return assistantTurn(sessionID, spoken, tag, nil), nil
}

// respondTool asks the tool backend for a plan. handled=false means the
// model declined and the conversational path should take over.
func (r *Router) respondTool(ctx context.Context, sessionID string, history []*schema.Message, query string) (conv.Turn, bool, error) {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(toolSystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, schema.UserMessage(query))

	var response *schema.Message
	_, err := r.withRetries(ctx, func(ctx context.Context) (string, error) {
		var genErr error
		response, genErr = r.opts.ToolModel.Generate(ctx, messages)
		if genErr != nil {
			return "", genErr
		}
		return response.Content, nil
	})
	if err != nil {
		return conv.Turn{}, false, err
	}

	if len(response.ToolCalls) == 0 {
		return conv.Turn{}, false, nil
	}

	call := response.ToolCalls[0]
	args, argsErr := decodeToolArgs(call.Function.Arguments)
	var result conv.ToolCall
	if argsErr != nil {
		log.Printf("[brain] malformed tool arguments for %s: %v", call.Function.Name, argsErr)
		result = conv.ToolCall{
			Name:   call.Function.Name,
			Status: conv.ToolFailed,
			Result: fmt.Sprintf("malformed arguments: %v", argsErr),
		}
	} else {
		result = r.opts.Dispatcher.Invoke(ctx, call.Function.Name, args)
	}

	turn := r.deliverToolResult(ctx, sessionID, query, result)
	return turn, true, nil
}

// deliverToolResult turns a tool outcome into the spoken reply, either
// rephrased in character or in the fixed direct format.
func (r *Router) deliverToolResult(ctx context.Context, sessionID, query string, result conv.ToolCall) conv.Turn {
	tag := sentiment.ForToolResult(result.Failed(), result.Result)

	spoken := fmt.Sprintf(directToolReplyFormat, result.Result)
	if r.opts.RephraseToolResult {
		rephrased, err := r.withRetries(ctx, func(ctx context.Context) (string, error) {
			return r.conversation.reply(ctx, nil, rephrasePrompt(query, result.Result))
		})
		if err != nil {
			log.Printf("[brain] rephrase failed, using direct reply: %v", err)
		} else {
			// Keep the tool outcome's tag: the rephrased text may carry
			// its own marker, strip it if present.
			_, rephrased = sentiment.Extract(rephrased)
			spoken = rephrased
		}
	}

	return assistantTurn(sessionID, spoken, tag, &result)
}

// withRetries runs one backend attempt per try under the configured
// timeout.
func (r *Router) withRetries(ctx context.Context, attempt func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for try := 0; try <= r.opts.Retries; try++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		result, err := attempt(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Printf("[brain] backend attempt %d failed: %v", try+1, err)
	}
	return "", fmt.Errorf("%w: %v", ErrBackend, lastErr)
}

func (r *Router) apologize(sessionID string) conv.Turn {
	return assistantTurn(sessionID, apologyReply, sentiment.Error, nil)
}

func assistantTurn(sessionID, content string, tag sentiment.Tag, call *conv.ToolCall) conv.Turn {
	return conv.Turn{
		SessionID: sessionID,
		Role:      conv.RoleAssistant,
		Content:   content,
		Sentiment: tag,
		ToolCall:  call,
	}
}

func decodeToolArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
