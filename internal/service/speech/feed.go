package speech

import (
	"context"
	"log"
)

// TextFeed lets typed input stand in for speech. Whatever is pushed here
// is treated exactly like a recognized utterance.
type TextFeed struct {
	ch chan string
}

func NewTextFeed() *TextFeed {
	return &TextFeed{ch: make(chan string, 4)}
}

// Push queues typed input. It reports false when the queue is full.
func (f *TextFeed) Push(text string) bool {
	select {
	case f.ch <- text:
		return true
	default:
		return false
	}
}

// Microphone is any source of transcribed utterances.
type Microphone interface {
	Listen(ctx context.Context) (string, error)
}

// CompositeListener merges microphone capture with the text feed:
// whichever produces an utterance first wins the listening window. A nil
// microphone leaves typed input as the only source.
type CompositeListener struct {
	mic  Microphone
	feed *TextFeed
}

func NewCompositeListener(mic Microphone, feed *TextFeed) *CompositeListener {
	return &CompositeListener{mic: mic, feed: feed}
}

type listenResult struct {
	text string
	err  error
}

func (c *CompositeListener) Listen(ctx context.Context) (string, error) {
	micCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan listenResult, 1)
	if c.mic != nil {
		go func() {
			text, err := c.mic.Listen(micCtx)
			results <- listenResult{text: text, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ErrNoSpeech
	case text := <-c.feed.ch:
		cancel()
		log.Printf("[speech] typed input: %q", text)
		return text, nil
	case res := <-results:
		return res.text, res.err
	}
}
