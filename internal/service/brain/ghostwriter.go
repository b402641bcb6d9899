package brain

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/zhouzirui/steward/internal/model/conv"
)

// codeBlockPattern captures fenced code blocks, language tag and all.
var codeBlockPattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9+#._-]*)\n?(.*?)```")

// ghostWrite lifts code blocks out of a reply and types them into the
// focused window through the write_to_screen tool. The spoken reply keeps
// everything but the code.
func (r *Router) ghostWrite(ctx context.Context, reply string) string {
	if r.opts.Dispatcher == nil {
		return reply
	}
	blocks := codeBlockPattern.FindAllStringSubmatch(reply, -1)
	if len(blocks) == 0 {
		return reply
	}

	var code strings.Builder
	for i, block := range blocks {
		if i > 0 {
			code.WriteString("\n\n")
		}
		code.WriteString(strings.TrimRight(block[1], "\n"))
	}

	result := r.opts.Dispatcher.Invoke(ctx, "write_to_screen", map[string]any{
		"text": code.String(),
	})
	if result.Status == conv.ToolFailed {
		log.Printf("[brain] ghost-write failed: %s", result.Result)
		return reply
	}

	stripped := codeBlockPattern.ReplaceAllString(reply, "")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		stripped = "I've written it to the screen for you, sir."
	}
	return stripped
}
