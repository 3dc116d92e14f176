package a2a

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentsurface/model"
)

const (
	streamPath = "/v1/message:stream"
	sendPath   = "/v1/message:send"
)

// wireChunk is one SSE payload from the remote agent's streaming endpoint.
// Either a delta or an error marker.
type wireChunk struct {
	Text      string                   `json:"text,omitempty"`
	ToolCalls []model.ToolCallFragment `json:"tool_calls,omitempty"`
	Error     *wireError               `json:"error,omitempty"`
}

// wireError lets the remote agent classify its own mid-stream failures.
type wireError struct {
	Message   string `json:"message"`
	Transient bool   `json:"transient,omitempty"`
}

// ConnectionOptions configures a Connection.
type ConnectionOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Connection is an established link to one remote agent. It implements
// model.Model: generation requests are sent to the agent's message endpoint
// and the response is surfaced as a delta stream. The transport mode follows
// the card's declared capabilities — SSE streaming when available, a
// single-shot polling send otherwise. Safe for concurrent use; connections
// are cached per address by the owning host.
type Connection struct {
	card       *AgentCard
	baseURL    string
	httpClient *http.Client
}

// NewConnection creates a connection for a resolved agent card.
func NewConnection(card *AgentCard, optFns ...func(o *ConnectionOptions)) *Connection {
	opts := ConnectionOptions{Timeout: 5 * time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Connection{
		card:       card,
		baseURL:    strings.TrimRight(card.URL, "/"),
		httpClient: client,
	}
}

// Card returns the resolved agent card backing this connection.
func (c *Connection) Card() *AgentCard { return c.card }

// GenerateStream implements model.Model against the remote agent.
func (c *Connection) GenerateStream(ctx context.Context, req model.Request) (<-chan model.Delta, <-chan error) {
	out := make(chan model.Delta, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		switch {
		case c.card.Capabilities.Streaming:
			c.stream(ctx, req, out, errCh)
		case c.card.Capabilities.Polling:
			c.send(ctx, req, out, errCh)
		default:
			errCh <- fmt.Errorf("agent %s declares no supported transport (push is not implemented)", c.card.Name)
		}
	}()

	return out, errCh
}

// stream consumes the SSE endpoint, forwarding each data payload as a delta.
func (c *Connection) stream(ctx context.Context, req model.Request, out chan<- model.Delta, errCh chan<- error) {
	resp, err := c.post(ctx, streamPath, req, "text/event-stream")
	if err != nil {
		errCh <- err
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			if payload == "[DONE]" {
				return
			}
			continue
		}

		var chunk wireChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			errCh <- fmt.Errorf("decode stream chunk: %w", err)
			return
		}
		if chunk.Error != nil {
			err := fmt.Errorf("remote agent error: %s", chunk.Error.Message)
			if chunk.Error.Transient {
				err = model.Transient(err)
			}
			errCh <- err
			return
		}

		delta := model.Delta{Text: chunk.Text, ToolCalls: chunk.ToolCalls}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		case out <- delta:
		}
	}
	if err := scanner.Err(); err != nil {
		// A cut stream is worth a fresh attempt.
		errCh <- model.Transient(fmt.Errorf("stream interrupted: %w", err))
	}
}

// send performs a single-shot request for agents that only support polling,
// surfacing the complete response as one delta.
func (c *Connection) send(ctx context.Context, req model.Request, out chan<- model.Delta, errCh chan<- error) {
	resp, err := c.post(ctx, sendPath, req, "application/json")
	if err != nil {
		errCh <- err
		return
	}
	defer resp.Body.Close()

	var chunk wireChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		errCh <- fmt.Errorf("decode send response: %w", err)
		return
	}
	if chunk.Error != nil {
		err := fmt.Errorf("remote agent error: %s", chunk.Error.Message)
		if chunk.Error.Transient {
			err = model.Transient(err)
		}
		errCh <- err
		return
	}

	select {
	case <-ctx.Done():
		errCh <- ctx.Err()
	case out <- model.Delta{Text: chunk.Text, ToolCalls: chunk.ToolCalls}:
	}
}

// post issues the request and classifies transport-level failures.
func (c *Connection) post(ctx context.Context, path string, req model.Request, accept string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, model.Transient(fmt.Errorf("agent request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		err := fmt.Errorf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		if model.TransientStatus(resp.StatusCode) {
			return nil, model.Transient(err)
		}
		return nil, err
	}
	return resp, nil
}

// Info implements model.Model.
func (c *Connection) Info() model.Info {
	return model.Info{
		Name:              c.card.Name,
		Provider:          "a2a",
		SupportsStreaming: c.card.Capabilities.Streaming,
	}
}
