package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes a tool with decoded JSON arguments and returns the
// text sent back to the client.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     Handler        `json:"-"`
}

// Registry holds available tools in registration order.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry, replacing any tool with the
// same name.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// All returns every registered tool in registration order.
func (r *Registry) All() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Schema returns the tool's parameter schema as raw JSON.
func (t *Tool) Schema() (json.RawMessage, error) {
	out, err := json.Marshal(t.Parameters)
	if err != nil {
		return nil, fmt.Errorf("tool %s: marshal schema: %w", t.Name, err)
	}
	return out, nil
}

// Call validates args against the tool's schema and runs its handler.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", &ErrToolUnavailable{ToolName: name}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := ValidateArgs(tool.Parameters, args); err != nil {
		return "", &ValidationError{Tool: name, Message: err.Error()}
	}
	return tool.Handler(ctx, args)
}

// Execute runs a tool by name with JSON-encoded arguments.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (string, error) {
	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", &ValidationError{Tool: name, Message: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}
	return r.Call(ctx, name, args)
}
