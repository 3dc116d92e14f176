// Package anthropic adapts the Anthropic Messages API (streaming with tool
// use) to the generic model.Model interface. Text and input-JSON deltas are
// forwarded as raw fragments keyed by the content block index; folding into
// complete tool calls happens downstream in the accumulator.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/model"
)

// Options configure the Anthropic model adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind model.Model.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// GenerateStream implements model.Model over the Messages streaming API.
func (m *Model) GenerateStream(ctx context.Context, req model.Request) (<-chan model.Delta, <-chan error) {
	out := make(chan model.Delta, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)
		stream := m.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			delta, ok := toDelta(event)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- delta:
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- classify(err)
		}
	}()

	return out, errCh
}

// toDelta maps one stream event to a normalized delta. Tool use blocks open a
// fragment slot keyed by the content block index; input JSON arrives as
// partial argument text on the same index.
func toDelta(event anthropic.MessageStreamEventUnion) (model.Delta, bool) {
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if block, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			return model.Delta{ToolCalls: []model.ToolCallFragment{{
				Index: int(ev.Index),
				ID:    block.ID,
				Name:  block.Name,
			}}}, true
		}
	case anthropic.ContentBlockDeltaEvent:
		switch d := ev.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if d.Text != "" {
				return model.Delta{Text: d.Text}, true
			}
		case anthropic.InputJSONDelta:
			if d.PartialJSON != "" {
				return model.Delta{ToolCalls: []model.ToolCallFragment{{
					Index:     int(ev.Index),
					Arguments: d.PartialJSON,
				}}}, true
			}
		}
	}
	return model.Delta{}, false
}

// classify wraps retryable API errors (429, 529, gateway trouble) as transient.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && model.TransientStatus(apiErr.StatusCode) {
		return model.Transient(fmt.Errorf("anthropic streaming error: %w", err))
	}
	if ne := model.ClassifyNetErr(err); model.IsTransient(ne) {
		return ne
	}
	return fmt.Errorf("anthropic streaming error: %w", err)
}

// buildParams assembles the message request including system prompt and tools.
func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Turns),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if system := systemBlocks(req.Turns); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, len(req.Tools))
		for i, tdef := range req.Tools {
			tools[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
				Name:        tdef.Name,
				Description: anthropic.String(tdef.Description),
				InputSchema: inputSchema(tdef.Parameters),
			}}
		}
		params.Tools = tools
	}
	return params
}

// inputSchema copies the declarative parameter schema into the SDK shape.
func inputSchema(parameters map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{}
	if parameters == nil {
		return schema
	}
	if properties, ok := parameters["properties"]; ok {
		schema.Properties = properties
	}
	switch required := parameters["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	return schema
}

// systemBlocks extracts system turns as text blocks (Anthropic keeps the
// system prompt out of the message list).
func systemBlocks(turns []core.Turn) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, t := range turns {
		if t.Role == core.RoleSystem && t.Text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: t.Text})
		}
	}
	return blocks
}

// buildMessages converts conversation turns into Anthropic messages. Tool
// results become user-role tool_result blocks per the Messages API contract.
func buildMessages(turns []core.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, t := range turns {
		switch t.Role {
		case core.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case core.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.ToolCalls)+1)
			if t.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Text))
			}
			for _, call := range t.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, json.RawMessage(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case core.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(t.CallID, t.Text, false)))
		}
	}
	return messages
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:              string(m.opts.Model),
		Provider:          "anthropic",
		SupportsStreaming: true,
	}
}
