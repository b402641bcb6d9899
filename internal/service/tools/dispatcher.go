package tools

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zhouzirui/steward/internal/model/conv"
)

// DefaultBudget bounds a single tool execution.
const DefaultBudget = 15 * time.Second

// Dispatcher executes tool invocations requested by the brain router. It
// guarantees tool failures never escape: unknown names, bad arguments,
// timeouts and panics all surface as a failed ToolCall, never as a crash.
type Dispatcher struct {
	registry *Registry
	budget   time.Duration
}

// NewDispatcher wraps a registry with an execution time budget. A zero
// budget falls back to DefaultBudget.
func NewDispatcher(registry *Registry, budget time.Duration) *Dispatcher {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Dispatcher{registry: registry, budget: budget}
}

// Invoke runs the named tool and returns the finalized call record.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any) conv.ToolCall {
	call := conv.ToolCall{Name: name, Arguments: args, Status: conv.ToolPending}

	tool, ok := d.registry.Lookup(name)
	if !ok {
		call.Status = conv.ToolFailed
		call.Result = "unknown tool"
		return call
	}

	if err := validateArgs(tool, args); err != nil {
		call.Status = conv.ToolFailed
		call.Result = err.Error()
		return call
	}

	execCtx, cancel := context.WithTimeout(ctx, d.budget)
	defer cancel()

	result, err := runIsolated(execCtx, tool, args)
	if err != nil {
		log.Printf("[tools] %s failed: %v", name, err)
		call.Status = conv.ToolFailed
		call.Result = err.Error()
		return call
	}

	call.Status = conv.ToolSucceeded
	call.Result = result
	return call
}

// runIsolated converts a panicking tool into an ordinary error.
func runIsolated(ctx context.Context, tool Tool, args map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", tool.Name, r)}
			}
		}()
		text, runErr := tool.Run(ctx, args)
		done <- outcome{text: text, err: runErr}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("tool %s exceeded its time budget: %w", tool.Name, ctx.Err())
	case out := <-done:
		return out.text, out.err
	}
}

func validateArgs(tool Tool, args map[string]any) error {
	for name, p := range tool.Params {
		val, present := args[name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required argument %q", name)
			}
			continue
		}
		if !typeConforms(p.Type, val) {
			return fmt.Errorf("argument %q must be of type %s", name, p.Type)
		}
	}
	return nil
}

func typeConforms(t ParamType, val any) bool {
	switch t {
	case TypeString:
		_, ok := val.(string)
		return ok
	case TypeBoolean:
		_, ok := val.(bool)
		return ok
	case TypeNumber:
		switch val.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeInteger:
		switch v := val.(type) {
		case int, int64:
			return true
		case float64:
			// JSON decoding yields float64; accept integral values.
			return v == float64(int64(v))
		}
		return false
	}
	return false
}
