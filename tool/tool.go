// Package tool implements the function/tool calling subsystem: a registry of
// named capabilities with JSON-Schema validated arguments, and a dispatcher
// that turns completed tool calls into conversation-ready invocation results.
// Tool failures are recovered locally as explicit result strings so the agent
// can self-correct; they never abort the surrounding turn loop.
package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/agentsurface/model"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe; one dispatch batch may run calls concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already-parsed arguments. Blocking work
	// must honor ctx.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Registry maps tool names to implementations. It is built once at wiring
// time and read-only afterwards, so concurrent lookups are safe.
type Registry map[string]Tool

// NewRegistry builds a registry from the given tools.
func NewRegistry(tools ...Tool) Registry {
	r := Registry{}
	for _, t := range tools {
		r[t.Name()] = t
	}
	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r Registry) Register(t Tool) { r[t.Name()] = t }

// Definitions exposes the registered tools as model tool declarations,
// sorted by name for deterministic request payloads.
func (r Registry) Definitions() []model.ToolDefinition {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r[name]
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
