package brain

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/steward/internal/model/persona"
)

// sentimentInstruction teaches the conversational model the reply marker
// the extractor looks for. Replies without a marker read as neutral.
const sentimentInstruction = `Begin every reply with exactly one of the markers [HAPPY], [ALERT], [ERROR] or [NEUTRAL], chosen for the mood of the reply:
- [HAPPY] for good news, success, or pleasantries
- [ALERT] when something needs the user's attention
- [ERROR] when something went wrong
- [NEUTRAL] for everything else
The marker is stripped before the reply is spoken, so never refer to it.`

// buildSystemPrompt renders the persona as a system prompt for the
// conversational backend.
func buildSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.\n", p.Name, strings.ToLower(p.Title))
	fmt.Fprintf(&b, "Address the user as %q at least once per reply.\n", p.Address)
	fmt.Fprintf(&b, "Your tone is %s.\n", p.Tone)
	if len(p.Traits) > 0 {
		fmt.Fprintf(&b, "You are %s.\n", strings.Join(p.Traits, ", "))
	}
	if p.PromptHint != "" {
		b.WriteString(p.PromptHint)
		b.WriteString("\n")
	}
	b.WriteString("Your replies are spoken aloud, so keep them short and conversational.\n\n")
	b.WriteString(sentimentInstruction)
	return b.String()
}

// rephrasePrompt wraps a raw tool result for the conversational backend
// to deliver in character.
func rephrasePrompt(query, result string) string {
	return fmt.Sprintf(
		"The user asked: %q\nAn action was performed with this outcome: %q\nRelay the outcome to the user in one or two sentences, in character.",
		query, result,
	)
}

// directToolReplyFormat is the reply shape when rephrasing is turned off.
const directToolReplyFormat = "Done. %s"
