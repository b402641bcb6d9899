package sentiment

import (
	"regexp"
	"strings"
)

// Tag 表示回复携带的情绪标记。
type Tag string

const (
	Neutral Tag = "NEUTRAL"
	Happy   Tag = "HAPPY"
	Alert   Tag = "ALERT"
	Error   Tag = "ERROR"
)

// Color is the canonical overlay color derived from a tag.
type Color string

const (
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorCyan   Color = "cyan"
)

// markerPattern matches a leading sentiment marker emitted by the
// conversational backend, e.g. "[HAPPY] Very good, Sir."
var markerPattern = regexp.MustCompile(`^\s*\[(HAPPY|ALERT|ERROR|NEUTRAL)\]\s*`)

// Extract pulls the sentiment marker off the front of backend text and
// returns the tag plus the speakable remainder. Parsing is best-effort:
// an absent or unrecognized marker yields Neutral and the text untouched.
func Extract(text string) (Tag, string) {
	m := markerPattern.FindStringSubmatch(text)
	if m == nil {
		return Neutral, strings.TrimSpace(text)
	}

	tag := Tag(m[1])
	cleaned := strings.TrimSpace(markerPattern.ReplaceAllString(text, ""))
	return tag, cleaned
}

// ColorFor maps a tag to its canonical color. The mapping is total: any
// value outside the four known tags falls back to cyan.
func ColorFor(tag Tag) Color {
	switch tag {
	case Happy:
		return ColorGreen
	case Alert:
		return ColorOrange
	case Error:
		return ColorRed
	default:
		return ColorCyan
	}
}

// ForToolResult derives the tag for a completed tool turn. A failed
// dispatch is always Error regardless of backend-asserted mood; results
// reporting missing data surface as Alert; everything else is Happy.
func ForToolResult(failed bool, result string) Tag {
	if failed {
		return Error
	}

	lowered := strings.ToLower(result)
	if strings.Contains(lowered, "not found") || strings.Contains(lowered, "no information") {
		return Alert
	}
	return Happy
}
