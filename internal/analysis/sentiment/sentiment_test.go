package sentiment

import "testing"

func TestExtractStripsMarker(t *testing.T) {
	tag, text := Extract("[HAPPY] Very good, Sir. Chrome is on its way.")
	if tag != Happy {
		t.Fatalf("expected HAPPY tag, got %s", tag)
	}
	if text != "Very good, Sir. Chrome is on its way." {
		t.Fatalf("marker not stripped: %q", text)
	}
}

func TestExtractDefaultsToNeutral(t *testing.T) {
	cases := []string{
		"It is 72 degrees in New York, Sir.",
		"[CONFUSED] unrecognized marker stays in place",
		"",
	}
	for _, input := range cases {
		tag, _ := Extract(input)
		if tag != Neutral {
			t.Fatalf("input %q: expected NEUTRAL, got %s", input, tag)
		}
	}
}

func TestExtractKeepsUnrecognizedMarkerText(t *testing.T) {
	_, text := Extract("[CONFUSED] as you wish")
	if text != "[CONFUSED] as you wish" {
		t.Fatalf("unrecognized marker should not be stripped, got %q", text)
	}
}

func TestColorForIsTotal(t *testing.T) {
	cases := map[Tag]Color{
		Happy:          ColorGreen,
		Alert:          ColorOrange,
		Error:          ColorRed,
		Neutral:        ColorCyan,
		Tag("BOGUS"):   ColorCyan,
		Tag(""):        ColorCyan,
		Tag("UNKNOWN"): ColorCyan,
	}
	for tag, want := range cases {
		if got := ColorFor(tag); got != want {
			t.Fatalf("tag %q: expected %s, got %s", tag, want, got)
		}
	}
}

func TestForToolResultFailureOverrides(t *testing.T) {
	if got := ForToolResult(true, "Successfully launched chrome."); got != Error {
		t.Fatalf("failed dispatch must map to ERROR, got %s", got)
	}
}

func TestForToolResultMissingDataAlerts(t *testing.T) {
	if got := ForToolResult(false, "No information found in knowledge base for: wifi"); got != Alert {
		t.Fatalf("expected ALERT, got %s", got)
	}
	if got := ForToolResult(false, "Error: 'foo' not found in installed apps."); got != Alert {
		t.Fatalf("expected ALERT for not-found text, got %s", got)
	}
}

func TestForToolResultSuccessIsHappy(t *testing.T) {
	if got := ForToolResult(false, "Successfully launched chrome."); got != Happy {
		t.Fatalf("expected HAPPY, got %s", got)
	}
}
