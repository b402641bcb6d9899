package voice

import (
	"regexp"
	"strings"
)

var (
	codeBlockPattern  = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`([^`]*)`")
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	emphasisPattern   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletPattern     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	spacesPattern     = regexp.MustCompile(`[ \t]{2,}`)
)

// CleanForSpeech strips markdown structure that sounds wrong when read
// aloud. Fenced code blocks vanish entirely; the ghost-writer path has
// already put their contents on screen.
func CleanForSpeech(text string) string {
	text = codeBlockPattern.ReplaceAllString(text, "")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = bulletPattern.ReplaceAllString(text, "")
	text = spacesPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
