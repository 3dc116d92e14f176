// Package openai adapts the OpenAI Chat Completions API (streaming with
// function/tool calling) to the generic model.Model interface. Partial tool
// call chunks are forwarded as raw fragments; folding into complete calls
// happens downstream in the accumulator.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/model"
)

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// GenerateStream implements model.Model. Chat completion chunks are adapted
// into model.Delta values; provider failures are classified Transient when
// the status code signals rate limiting or temporary unavailability.
func (m *Model) GenerateStream(ctx context.Context, req model.Request) (<-chan model.Delta, <-chan error) {
	out := make(chan model.Delta, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)
		stream := m.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				delta := toDelta(ch)
				if delta.Text == "" && len(delta.ToolCalls) == 0 {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- delta:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- classify(err)
		}
	}()

	return out, errCh
}

// toDelta converts one streamed choice into a normalized delta.
func toDelta(ch openai.ChatCompletionChunkChoice) model.Delta {
	d := model.Delta{Text: ch.Delta.Content}
	for _, tc := range ch.Delta.ToolCalls {
		d.ToolCalls = append(d.ToolCalls, model.ToolCallFragment{
			Index:     int(tc.Index),
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return d
}

// classify wraps retryable API errors as transient.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && model.TransientStatus(apiErr.StatusCode) {
		return model.Transient(fmt.Errorf("openai streaming error: %w", err))
	}
	if ne := model.ClassifyNetErr(err); model.IsTransient(ne) {
		return ne
	}
	return fmt.Errorf("openai streaming error: %w", err)
}

// buildParams assembles the request including messages and tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Turns),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts conversation turns into OpenAI chat messages. Turns
// are already ordered append-only, so tool result turns follow the assistant
// turn that requested them.
func buildMessages(turns []core.Turn) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, t := range turns {
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Text))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(t.Text))
		case core.RoleAssistant:
			if len(t.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(t.Text))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(t.ToolCalls))
			for i, call := range t.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				}
			}
			messages = append(
				messages,
				openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				}},
			)
		case core.RoleTool:
			messages = append(messages, openai.ToolMessage(t.Text, t.CallID))
		default:
			if t.Text != "" {
				messages = append(messages, openai.UserMessage(t.Text))
			}
		}
	}
	return messages
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:              m.opts.Model,
		Provider:          "openai",
		SupportsStreaming: true,
	}
}
