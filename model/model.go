package model

import (
	"context"

	"github.com/hupe1980/agentsurface/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input for one generation attempt.
type Request struct {
	Turns []core.Turn      `json:"turns"`
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// ToolCallFragment is one incremental piece of a streamed tool call. Index is
// the slot assigned by the provider; ID, Name and Arguments are partial text
// that downstream folding concatenates in arrival order.
type ToolCallFragment struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Delta is one unit received from a streaming generation: an optional text
// fragment and/or tool call fragments.
type Delta struct {
	Text      string             `json:"text,omitempty"`
	ToolCalls []ToolCallFragment `json:"tool_calls,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name              string `json:"name"`
	Provider          string `json:"provider"` // "openai", "anthropic", "a2a", "mock", ...
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Model is the minimal interface required to drive generation. The delta
// channel is closed when the attempt completes; a value on the error channel
// classifies the failure (wrap with Transient for retryable errors). Both
// channels are single-consumer.
type Model interface {
	GenerateStream(ctx context.Context, req Request) (<-chan Delta, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}
