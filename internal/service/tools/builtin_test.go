package tools

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/steward/internal/analysis/sentiment"
	"github.com/zhouzirui/steward/internal/model/conv"
)

// trueCommand swaps every tool subprocess for /bin/true.
func trueCommand(ctx context.Context, _ string, _ ...string) *exec.Cmd {
	return exec.CommandContext(ctx, "true")
}

type fakeKnowledge struct {
	facts []string
	err   error
}

func (f *fakeKnowledge) Search(_ context.Context, _ string) ([]string, error) {
	return f.facts, f.err
}

func builtinDispatcher(t *testing.T, deps BuiltinDeps) *Dispatcher {
	t.Helper()
	if deps.CommandContext == nil {
		deps.CommandContext = trueCommand
	}
	reg := NewRegistry()
	if err := RegisterBuiltins(reg, deps); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return NewDispatcher(reg, 2*time.Second)
}

func TestOpenKnownApplication(t *testing.T) {
	d := builtinDispatcher(t, BuiltinDeps{})

	// "true" is on PATH everywhere the tests run; alias it in.
	orig, had := appAliases["chrome"]
	appAliases["chrome"] = "true"
	defer func() {
		if had {
			appAliases["chrome"] = orig
		}
	}()

	call := d.Invoke(context.Background(), "open_application", map[string]any{"name": "chrome"})
	if call.Status != conv.ToolSucceeded {
		t.Fatalf("status = %s, result %q", call.Status, call.Result)
	}
	if tag := sentiment.ForToolResult(call.Failed(), call.Result); tag != sentiment.Happy {
		t.Fatalf("tag = %s, want HAPPY", tag)
	}
}

func TestOpenUnknownApplicationFails(t *testing.T) {
	d := builtinDispatcher(t, BuiltinDeps{})

	call := d.Invoke(context.Background(), "open_application", map[string]any{"name": "nonexistent_app"})
	if call.Status != conv.ToolFailed {
		t.Fatalf("status = %s, want failed", call.Status)
	}
	// A failed dispatch always reads as an error, whatever the wording.
	if tag := sentiment.ForToolResult(call.Failed(), call.Result); tag != sentiment.Error {
		t.Fatalf("tag = %s, want ERROR", tag)
	}
}

func TestCurrentTimeUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, time.March, 14, 15, 4, 0, 0, time.UTC)
	d := builtinDispatcher(t, BuiltinDeps{Now: func() time.Time { return fixed }})

	call := d.Invoke(context.Background(), "get_current_time", nil)
	if call.Status != conv.ToolSucceeded {
		t.Fatalf("status = %s, result %q", call.Status, call.Result)
	}
	if !strings.Contains(call.Result, "March 14, 2026") {
		t.Fatalf("result = %q", call.Result)
	}
}

func TestKnowledgeSearchEmptyReadsAsAlert(t *testing.T) {
	d := builtinDispatcher(t, BuiltinDeps{Knowledge: &fakeKnowledge{}})

	call := d.Invoke(context.Background(), "search_knowledge_base", map[string]any{"query": "wifi password"})
	if call.Status != conv.ToolSucceeded {
		t.Fatalf("status = %s, result %q", call.Status, call.Result)
	}
	if tag := sentiment.ForToolResult(call.Failed(), call.Result); tag != sentiment.Alert {
		t.Fatalf("tag = %s, want ALERT for missing information", tag)
	}
}

func TestKnowledgeSearchReturnsFacts(t *testing.T) {
	d := builtinDispatcher(t, BuiltinDeps{Knowledge: &fakeKnowledge{facts: []string{"The WiFi password is hunter2."}}})

	call := d.Invoke(context.Background(), "search_knowledge_base", map[string]any{"query": "wifi"})
	if call.Status != conv.ToolSucceeded || !strings.Contains(call.Result, "hunter2") {
		t.Fatalf("call = %+v", call)
	}
}

func TestVolumeRejectsUnknownAction(t *testing.T) {
	d := builtinDispatcher(t, BuiltinDeps{})

	call := d.Invoke(context.Background(), "system_volume", map[string]any{"action": "sideways"})
	if call.Status != conv.ToolSucceeded {
		t.Fatalf("status = %s", call.Status)
	}
	if !strings.Contains(call.Result, "Unknown volume action") {
		t.Fatalf("result = %q", call.Result)
	}
}
