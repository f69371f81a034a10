package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is one capability the agent can invoke mid-conversation. Params
// arrive as the decoded JSON object the model produced.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.tools[t.Name] = t
	}
	return r
}

// DefaultRegistry carries the built-in toolset: arithmetic and web search.
func DefaultRegistry() *Registry {
	ts := append(calculatorTools(), searchTool(), readPageTool())
	return NewRegistry(ts...)
}

func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.Run(ctx, params)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Describe renders the toolset for the system prompt.
func (r *Registry) Describe() string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.tools[name].Description)
		sb.WriteString("\n")
	}
	return sb.String()
}
