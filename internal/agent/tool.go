// Package agent runs the autonomous tool loop that lets the model
// query the academic database before answering.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is one capability the model can invoke.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds the tools offered to the model.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice panics; tool
// sets are wired once at startup.
func (r *Registry) Register(t Tool) {
	if _, dup := r.tools[t.Name()]; dup {
		panic(fmt.Sprintf("agent: duplicate tool %q", t.Name()))
	}
	r.tools[t.Name()] = t
}

// Context renders the tool list for the system prompt.
func (r *Registry) Context() string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("AVAILABLE TOOLS:\n")
	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.tools[name].Description())
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Execute runs a named tool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("agent: unknown tool %q", name)
	}
	return t.Call(ctx, args)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
