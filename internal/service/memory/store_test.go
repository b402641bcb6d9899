package memory_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/service/memory"
)

type stubSummarizer struct {
	calls int
	fail  bool
}

func (s *stubSummarizer) Summarize(_ context.Context, turns []conv.Turn) (string, error) {
	s.calls++
	if s.fail {
		return "", fmt.Errorf("model offline")
	}
	return fmt.Sprintf("synopsis of %d turns", len(turns)), nil
}

func userTurn(content string) conv.Turn {
	return conv.Turn{Role: conv.RoleUser, Content: content, Sentiment: sentiment.Neutral}
}

func TestRoundTripPreservesOrderAndFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()

	store, err := memory.NewStore(path, 100, nil)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}

	inputs := []conv.Turn{
		{Role: conv.RoleUser, Content: "open chrome", Sentiment: sentiment.Neutral},
		{Role: conv.RoleTool, Content: "Done. Successfully launched chrome.", Sentiment: sentiment.Happy,
			ToolCall: &conv.ToolCall{Name: "open_application", Status: conv.ToolSucceeded, Result: "Successfully launched chrome."}},
		{Role: conv.RoleAssistant, Content: "Anything else, Sir?", Sentiment: sentiment.Happy},
	}
	for _, turn := range inputs {
		if err := store.Append(ctx, turn); err != nil {
			t.Fatalf("Append err: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	reloaded, err := memory.NewStore(path, 100, nil)
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	defer reloaded.Close()

	got := reloaded.All()
	if len(got) != len(inputs) {
		t.Fatalf("expected %d records, got %d", len(inputs), len(got))
	}
	for i, turn := range got {
		if turn.Role != inputs[i].Role || turn.Content != inputs[i].Content || turn.Sentiment != inputs[i].Sentiment {
			t.Fatalf("record %d mismatch: %+v", i, turn)
		}
		if turn.CreatedAt.IsZero() || turn.ID == "" {
			t.Fatalf("record %d lost identity fields: %+v", i, turn)
		}
	}
	if got[1].ToolCall == nil || got[1].ToolCall.Name != "open_application" {
		t.Fatalf("tool call summary lost: %+v", got[1].ToolCall)
	}
}

func TestLoadDropsTruncatedTrailingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()

	store, err := memory.NewStore(path, 100, nil)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	if err := store.Append(ctx, userTurn("first")); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	if err := store.Append(ctx, userTurn("second")); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	store.Close()

	// Simulate a torn write: chop the file mid-record.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile err: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-20], 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	reloaded, err := memory.NewStore(path, 100, nil)
	if err != nil {
		t.Fatalf("reload err: %v", err)
	}
	defer reloaded.Close()

	got := reloaded.All()
	if len(got) != 1 {
		t.Fatalf("expected truncated record dropped, got %d records", len(got))
	}
	if got[0].Content != "first" {
		t.Fatalf("surviving record wrong: %q", got[0].Content)
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "ledger.jsonl")
	store, err := memory.NewStore(path, 10, nil)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	defer store.Close()

	if store.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", store.Len())
	}
}

func TestSummaryInsertedAtInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()
	summarizer := &stubSummarizer{}

	store, err := memory.NewStore(path, 10, summarizer)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	defer store.Close()

	for i := 0; i < 10; i++ {
		if err := store.Append(ctx, userTurn(fmt.Sprintf("turn %d", i))); err != nil {
			t.Fatalf("Append err: %v", err)
		}
	}

	if summarizer.calls != 1 {
		t.Fatalf("expected exactly one summarization, got %d", summarizer.calls)
	}

	all := store.All()
	summaries := 0
	for _, turn := range all {
		if turn.Summary {
			summaries++
		}
	}
	if summaries != 1 {
		t.Fatalf("expected exactly one summary record, got %d", summaries)
	}
	// Raw turns stay recoverable alongside the summary.
	if len(all) != 11 {
		t.Fatalf("expected 10 raw turns + 1 summary, got %d", len(all))
	}
}

func TestContextUsesSummaryPlusTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()

	store, err := memory.NewStore(path, 10, &stubSummarizer{})
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	defer store.Close()

	for i := 0; i < 10; i++ {
		store.Append(ctx, userTurn(fmt.Sprintf("old %d", i)))
	}
	store.Append(ctx, userTurn("fresh question"))

	window := store.Context(10)
	if len(window) != 2 {
		t.Fatalf("expected summary + 1 turn, got %d records", len(window))
	}
	if !window[0].Summary {
		t.Fatal("window must start with the summary record")
	}
	if !strings.HasPrefix(window[0].Content, "Previous conversation summary:") {
		t.Fatalf("unexpected summary content: %q", window[0].Content)
	}
	for _, turn := range window[1:] {
		if strings.HasPrefix(turn.Content, "old ") {
			t.Fatalf("pre-summary raw turn leaked into context: %q", turn.Content)
		}
	}
}

func TestContextBoundedByMaxDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()

	store, err := memory.NewStore(path, 1000, nil)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	defer store.Close()

	for i := 0; i < 25; i++ {
		store.Append(ctx, userTurn(fmt.Sprintf("turn %d", i)))
	}

	window := store.Context(10)
	if len(window) != 10 {
		t.Fatalf("expected window of 10, got %d", len(window))
	}
	if window[len(window)-1].Content != "turn 24" {
		t.Fatalf("window must end with the newest turn, got %q", window[len(window)-1].Content)
	}
}

func TestSummarizerFailureRetriesLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	ctx := context.Background()
	summarizer := &stubSummarizer{fail: true}

	store, err := memory.NewStore(path, 10, summarizer)
	if err != nil {
		t.Fatalf("NewStore err: %v", err)
	}
	defer store.Close()

	for i := 0; i < 11; i++ {
		store.Append(ctx, userTurn(fmt.Sprintf("turn %d", i)))
	}

	if summarizer.calls < 2 {
		t.Fatalf("expected retry after failure, got %d calls", summarizer.calls)
	}
	for _, turn := range store.All() {
		if turn.Summary {
			t.Fatal("no summary record should exist while summarizer fails")
		}
	}
}
