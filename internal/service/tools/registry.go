package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/schema"
)

var (
	ErrEmptyName      = errors.New("tool name is required")
	ErrNilRun         = errors.New("tool run function is required")
	ErrDuplicateName  = errors.New("tool name already registered")
	ErrUnknownArgType = errors.New("unknown parameter type")
)

// ParamType enumerates the argument types a tool schema may declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

// Param declares one named tool argument.
type Param struct {
	Type     ParamType
	Desc     string
	Required bool
}

// Tool couples a validated schema with an invocation function. Run returns
// the human-readable outcome text; a non-nil error marks the call failed.
type Tool struct {
	Name   string
	Desc   string
	Params map[string]Param
	Run    func(ctx context.Context, args map[string]any) (string, error)
}

// Registry maps tool identifiers to validated schemas plus invocation
// capabilities. Schemas are checked at registration time, not at call time.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register validates and stores a tool definition.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if t.Run == nil {
		return fmt.Errorf("tool %q: %w", t.Name, ErrNilRun)
	}
	for name, p := range t.Params {
		switch p.Type {
		case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		default:
			return fmt.Errorf("tool %q param %q: %w: %q", t.Name, name, ErrUnknownArgType, p.Type)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// MustRegister panics on a registration error. Intended for the builtin set
// wired at startup, where a bad schema is a programming mistake.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolInfos exports the registry as the schema set offered to the tool
// backend.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		params := make(map[string]*schema.ParameterInfo, len(t.Params))
		for pname, p := range t.Params {
			params[pname] = &schema.ParameterInfo{
				Type:     dataType(p.Type),
				Desc:     p.Desc,
				Required: p.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func dataType(t ParamType) schema.DataType {
	switch t {
	case TypeNumber:
		return schema.Number
	case TypeInteger:
		return schema.Integer
	case TypeBoolean:
		return schema.Boolean
	default:
		return schema.String
	}
}
