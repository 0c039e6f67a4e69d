// Package tools implements the capabilities the orchestrator can invoke:
// the ticket API simulator, web search and retrieval lookup.
package tools

import (
	"context"
	"fmt"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/logging"
)

// Tool is a named capability with a fixed parameter contract.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Run executes the tool. Failures are reported inside the result,
	// never as a panic or error that escapes to the orchestrator.
	Run(ctx context.Context, params map[string]any) domain.ToolResult
}

// Registry holds available tools and dispatches invocations.
type Registry struct {
	tools map[string]Tool
	log   *logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   log.Sub("tools"),
	}
}

// Register adds a tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// Run dispatches to the named tool. An unknown name yields an error
// result; a panic inside a tool is recovered and converted to an error
// result so nothing escapes the registry boundary.
func (r *Registry) Run(ctx context.Context, name string, params map[string]any) (result domain.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("tool", name).Any("panic", rec).Msg("tool panicked")
			result = domain.ToolResult{
				Status: 500,
				Error:  fmt.Sprintf("tool_exception: %v", rec),
			}
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return domain.ToolResult{Status: 400, Error: "Unknown tool"}
	}

	r.log.Debug().Str("tool", name).Msg("running tool")
	return t.Run(ctx, params)
}

// Param helpers shared by tool implementations.

func stringParam(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}
