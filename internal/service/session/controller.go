package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/overlay"
	"github.com/zhouzirui/steward/internal/service/brain"
	"github.com/zhouzirui/steward/internal/service/wakeword"
)

// terminationPhrases end the conversation without consulting a backend.
var terminationPhrases = []string{
	"that's all", "thank you", "thanks", "goodbye", "bye", "stop listening",
}

// farewellReply is spoken when the user closes the conversation.
const farewellReply = "Very good, sir."

// maxConsecutiveFailures ends the session once this many backend calls
// in a row have failed.
const maxConsecutiveFailures = 2

// Brain produces one assistant turn per utterance.
type Brain interface {
	Respond(ctx context.Context, sessionID string, history []*schema.Message, query string) (conv.Turn, error)
}

// Listener blocks until one utterance is transcribed. An error means
// nothing usable was heard before the context expired.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Voice speaks replies and can be interrupted mid-playback.
type Voice interface {
	Say(ctx context.Context, sessionID, text string) error
	Interrupt()
}

// Ledger is the durable conversation record.
type Ledger interface {
	Append(ctx context.Context, turn conv.Turn) error
	Context(maxDepth int) []conv.Turn
}

// Options wire a Controller.
type Options struct {
	Brain             Brain
	Listener          Listener
	Voice             Voice
	Ledger            Ledger
	Publisher         *overlay.Publisher
	Wake              <-chan wakeword.Activation
	OpeningLine       string
	MaxMemoryDepth    int
	InactivityTimeout time.Duration
}

// Controller drives conversations: one activation in, one session from
// greeting to idle.
type Controller struct {
	machine *Machine
	opts    Options

	mu  sync.Mutex
	cur conv.Session
}

func NewController(opts Options) *Controller {
	if opts.OpeningLine == "" {
		opts.OpeningLine = "Yes?"
	}
	if opts.MaxMemoryDepth <= 0 {
		opts.MaxMemoryDepth = 10
	}
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = 30 * time.Second
	}
	return &Controller{machine: NewMachine(), opts: opts}
}

// State exposes the lifecycle for the wake-word gate's probe.
func (c *Controller) State() conv.State {
	return c.machine.State()
}

// Snapshot reports the live session record. Between conversations the ID
// is the most recently closed session's.
func (c *Controller) Snapshot() conv.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.cur
	s.State = c.machine.State()
	return s
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.cur.LastActivityAt = time.Now()
	c.mu.Unlock()
}

// Interrupt cuts off speech in flight. Outside the speaking state it
// does nothing.
func (c *Controller) Interrupt() {
	if c.machine.State() == conv.StateSpeaking {
		c.opts.Voice.Interrupt()
	}
}

// Run consumes activations until the context ends.
func (c *Controller) Run(ctx context.Context) error {
	c.publish(overlay.Idle())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case act, ok := <-c.opts.Wake:
			if !ok {
				return nil
			}
			log.Printf("[session] activated, confidence %.2f", act.Confidence)
			c.runConversation(ctx)
		}
	}
}

func (c *Controller) runConversation(ctx context.Context) {
	sessionID := uuid.New().String()
	now := time.Now()
	c.mu.Lock()
	c.cur = conv.Session{ID: sessionID, StartedAt: now, LastActivityAt: now}
	c.mu.Unlock()
	if err := c.machine.To(conv.StateActivated); err != nil {
		log.Printf("[session] %v", err)
		return
	}
	defer func() {
		if err := c.machine.To(conv.StateIdle); err != nil {
			log.Printf("[session] %v", err)
		}
		c.publish(overlay.Idle())
		log.Printf("[session] %s closed", sessionID)
	}()

	c.publish(overlay.Status{StatusText: c.opts.OpeningLine, Color: sentiment.ColorCyan, IsActive: true})
	if err := c.opts.Voice.Say(ctx, sessionID, c.opts.OpeningLine); err != nil {
		log.Printf("[session] greeting failed: %v", err)
	}

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.machine.To(conv.StateListening); err != nil {
			log.Printf("[session] %v", err)
			return
		}
		c.publish(overlay.Status{StatusText: "Listening...", Color: sentiment.ColorCyan, IsActive: true})

		listenCtx, cancel := context.WithTimeout(ctx, c.opts.InactivityTimeout)
		text, err := c.opts.Listener.Listen(listenCtx)
		cancel()
		if err != nil {
			log.Printf("[session] listening window closed: %v", err)
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		c.touch()

		if isTermination(text) {
			c.record(ctx, conv.Turn{SessionID: sessionID, Role: conv.RoleUser, Content: text, Sentiment: sentiment.Neutral})
			c.record(ctx, conv.Turn{SessionID: sessionID, Role: conv.RoleAssistant, Content: farewellReply, Sentiment: sentiment.Happy})
			c.publish(overlay.Status{StatusText: farewellReply, Color: sentiment.ColorGreen, IsActive: true})
			c.opts.Voice.Say(ctx, sessionID, farewellReply)
			return
		}

		if err := c.machine.To(conv.StateThinking); err != nil {
			log.Printf("[session] %v", err)
			return
		}
		c.publish(overlay.Status{StatusText: "Thinking...", Color: sentiment.ColorCyan, IsActive: true})

		history := brain.HistoryMessages(c.opts.Ledger.Context(c.opts.MaxMemoryDepth))
		c.record(ctx, conv.Turn{SessionID: sessionID, Role: conv.RoleUser, Content: text, Sentiment: sentiment.Neutral})

		turn, err := c.opts.Brain.Respond(ctx, sessionID, history, text)
		if err != nil {
			failures++
			log.Printf("[session] backend failure %d/%d: %v", failures, maxConsecutiveFailures, err)
		} else {
			failures = 0
		}
		c.record(ctx, turn)

		if err := c.machine.To(conv.StateSpeaking); err != nil {
			log.Printf("[session] %v", err)
			return
		}
		statusText := turn.Content
		if turn.ToolCall != nil && turn.ToolCall.Status == conv.ToolSucceeded {
			statusText = "Ready"
		}
		c.publish(overlay.Status{
			StatusText: statusText,
			Color:      sentiment.ColorFor(turn.Sentiment),
			IsActive:   true,
		})
		if sayErr := c.opts.Voice.Say(ctx, sessionID, turn.Content); sayErr != nil {
			log.Printf("[session] playback failed: %v", sayErr)
		}
		c.touch()

		if failures >= maxConsecutiveFailures {
			c.publish(overlay.Status{StatusText: turn.Content, Color: sentiment.ColorRed, IsActive: false})
			return
		}
	}
}

func (c *Controller) record(ctx context.Context, turn conv.Turn) {
	if err := c.opts.Ledger.Append(ctx, turn); err != nil {
		log.Printf("[session] ledger append failed: %v", err)
	}
}

func (c *Controller) publish(s overlay.Status) {
	if c.opts.Publisher != nil {
		c.opts.Publisher.Publish(s)
	}
}

func isTermination(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range terminationPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
