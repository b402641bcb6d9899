package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zhouzirui/steward/internal/model/conv"
	"github.com/zhouzirui/steward/internal/service/tools"
)

func newTestDispatcher(t *testing.T, set ...tools.Tool) *tools.Dispatcher {
	t.Helper()
	r := tools.NewRegistry()
	for _, tool := range set {
		if err := r.Register(tool); err != nil {
			t.Fatalf("Register err: %v", err)
		}
	}
	return tools.NewDispatcher(r, time.Second)
}

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	r := tools.NewRegistry()

	if err := r.Register(tools.Tool{Name: ""}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := r.Register(tools.Tool{Name: "x"}); err == nil {
		t.Fatal("expected error for nil run function")
	}

	ok := tools.Tool{
		Name: "x",
		Run:  func(context.Context, map[string]any) (string, error) { return "", nil },
	}
	if err := r.Register(ok); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if err := r.Register(ok); err == nil {
		t.Fatal("expected error for duplicate name")
	}

	bad := tools.Tool{
		Name:   "y",
		Params: map[string]tools.Param{"p": {Type: tools.ParamType("blob")}},
		Run:    func(context.Context, map[string]any) (string, error) { return "", nil },
	}
	if err := r.Register(bad); err == nil {
		t.Fatal("expected error for unknown param type")
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	call := d.Invoke(context.Background(), "does_not_exist", nil)
	if call.Status != conv.ToolFailed {
		t.Fatalf("expected failed status, got %s", call.Status)
	}
	if call.Result != "unknown tool" {
		t.Fatalf("unexpected result: %q", call.Result)
	}
}

func TestInvokeValidatesArguments(t *testing.T) {
	d := newTestDispatcher(t, tools.Tool{
		Name: "open_application",
		Params: map[string]tools.Param{
			"name": {Type: tools.TypeString, Required: true},
		},
		Run: func(_ context.Context, args map[string]any) (string, error) {
			return "launched", nil
		},
	})

	call := d.Invoke(context.Background(), "open_application", map[string]any{})
	if call.Status != conv.ToolFailed {
		t.Fatalf("expected failed status, got %s", call.Status)
	}
	if !strings.Contains(call.Result, "missing required argument") {
		t.Fatalf("unexpected validation message: %q", call.Result)
	}

	call = d.Invoke(context.Background(), "open_application", map[string]any{"name": 42})
	if call.Status != conv.ToolFailed {
		t.Fatalf("expected failed status for wrong type, got %s", call.Status)
	}
}

func TestInvokeSuccess(t *testing.T) {
	d := newTestDispatcher(t, tools.Tool{
		Name: "get_current_time",
		Run: func(context.Context, map[string]any) (string, error) {
			return "Monday", nil
		},
	})

	call := d.Invoke(context.Background(), "get_current_time", nil)
	if call.Status != conv.ToolSucceeded {
		t.Fatalf("expected succeeded, got %s (%s)", call.Status, call.Result)
	}
	if call.Result != "Monday" {
		t.Fatalf("unexpected result: %q", call.Result)
	}
}

func TestInvokeCapturesPanic(t *testing.T) {
	d := newTestDispatcher(t, tools.Tool{
		Name: "explode",
		Run: func(context.Context, map[string]any) (string, error) {
			panic("boom")
		},
	})

	call := d.Invoke(context.Background(), "explode", nil)
	if call.Status != conv.ToolFailed {
		t.Fatalf("panic must convert to failed status, got %s", call.Status)
	}
	if !strings.Contains(call.Result, "panicked") {
		t.Fatalf("unexpected result: %q", call.Result)
	}
}

func TestInvokeEnforcesBudget(t *testing.T) {
	r := tools.NewRegistry()
	err := r.Register(tools.Tool{
		Name: "sleepy",
		Run: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-time.After(5 * time.Second):
				return "done", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	})
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	d := tools.NewDispatcher(r, 50*time.Millisecond)
	start := time.Now()
	call := d.Invoke(context.Background(), "sleepy", nil)
	if call.Status != conv.ToolFailed {
		t.Fatalf("expected failed status on timeout, got %s", call.Status)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("budget not enforced, took %v", elapsed)
	}
}

func TestInvokeErrorNeverPropagates(t *testing.T) {
	sentinel := errors.New("disk on fire")
	d := newTestDispatcher(t, tools.Tool{
		Name: "broken",
		Run: func(context.Context, map[string]any) (string, error) {
			return "", sentinel
		},
	})

	call := d.Invoke(context.Background(), "broken", nil)
	if call.Status != conv.ToolFailed {
		t.Fatalf("expected failed status, got %s", call.Status)
	}
	if !strings.Contains(call.Result, "disk on fire") {
		t.Fatalf("error detail missing from result: %q", call.Result)
	}
}

func TestToolInfosExportsSchemas(t *testing.T) {
	r := tools.NewRegistry()
	err := r.Register(tools.Tool{
		Name: "get_weather",
		Desc: "weather lookup",
		Params: map[string]tools.Param{
			"city": {Type: tools.TypeString, Desc: "city name", Required: true},
		},
		Run: func(context.Context, map[string]any) (string, error) { return "", nil },
	})
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}

	infos := r.ToolInfos()
	if len(infos) != 1 {
		t.Fatalf("expected 1 tool info, got %d", len(infos))
	}
	if infos[0].Name != "get_weather" {
		t.Fatalf("unexpected tool name: %s", infos[0].Name)
	}
}
