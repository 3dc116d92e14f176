// Package agentsurface provides a high-level façade over the orchestration
// building blocks (capability resolution, retried streaming generation, tool
// dispatch and surface conversion) enabling rapid construction of UI-driven
// remote-agent hosts. Most applications interact with this package by:
//  1. Creating a Host via New() (optionally overriding defaults)
//  2. Registering local tools the remote agent may call
//  3. Calling Chat() per user message and rendering the envelope stream
//
// The façade delegates turn orchestration to flow.TurnLoop while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a
// structured logger and a classifier-backed surface refinement model.
package agentsurface

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentsurface/a2a"
	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/flow"
	"github.com/hupe1980/agentsurface/logging"
	"github.com/hupe1980/agentsurface/retry"
	"github.com/hupe1980/agentsurface/session"
	"github.com/hupe1980/agentsurface/surface"
	"github.com/hupe1980/agentsurface/tool"
)

// Options configures the Host instance.
type Options struct {
	// SystemPrompt seeds every new session's conversation.
	SystemPrompt string

	// MaxTurns caps reason-act cycles per user message.
	MaxTurns int

	// MaxParallelTools caps concurrent tool executions per turn.
	MaxParallelTools int

	// Retry controls backoff for transient generation failures.
	Retry retry.Config

	// Resolver fetches and caches agent capability descriptors. Defaults to
	// a fresh CardResolver.
	Resolver *a2a.CardResolver

	// Sessions persists conversations between messages of one session.
	// Defaults to an in-memory store.
	Sessions session.Store

	// Classifier, when set, refines final answer text into richer surface
	// fragments (forms, tables, tickets). Refinement is best effort.
	Classifier surface.Classifier

	// ConnectionOptions tune the transport used to reach remote agents.
	ConnectionOptions []func(o *a2a.ConnectionOptions)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithSystemPrompt sets the system prompt for new sessions.
func WithSystemPrompt(prompt string) func(o *Options) {
	return func(o *Options) { o.SystemPrompt = prompt }
}

// WithClassifier enables surface refinement of final answers.
func WithClassifier(cl surface.Classifier) func(o *Options) {
	return func(o *Options) { o.Classifier = cl }
}

// Host wires capability resolution, connection reuse, session persistence and
// the turn loop into a single entry point. Safe for concurrent use; distinct
// sessions may chat in parallel, one session must not.
type Host struct {
	opts     Options
	registry tool.Registry

	mu          sync.Mutex
	connections map[string]*a2a.Connection
}

// New creates a Host with optional overrides.
func New(optFns ...func(o *Options)) *Host {
	opts := Options{
		MaxTurns: flow.DefaultMaxTurns,
		Retry:    retry.DefaultConfig(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Resolver == nil {
		opts.Resolver = a2a.NewCardResolver()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Host{
		opts:        opts,
		registry:    tool.NewRegistry(),
		connections: make(map[string]*a2a.Connection),
	}
}

// RegisterTool makes a local tool available to remote agents. Registering a
// tool with an existing name replaces it.
func (h *Host) RegisterTool(t tool.Tool) { h.registry.Register(t) }

// Chat sends one user message to the agent at agentURL, continuing the
// session's conversation, and returns the envelope stream for rendering.
// Resolution failures are reported synchronously; everything after that
// (generation errors included) arrives on the stream as error fragments.
// The returned channel is closed when the run ends.
func (h *Host) Chat(ctx context.Context, agentURL, sessionID, message string) (<-chan surface.Envelope, error) {
	card, err := h.opts.Resolver.Resolve(ctx, agentURL)
	if err != nil {
		return nil, fmt.Errorf("resolve agent: %w", err)
	}
	conn := h.connection(card)

	conv, err := h.opts.Sessions.GetOrCreate(sessionID, h.opts.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	conv.Append(core.Turn{Role: core.RoleUser, Text: message})

	loop := flow.New(conn, h.registry, func(o *flow.Options) {
		o.MaxTurns = h.opts.MaxTurns
		o.MaxParallelTools = h.opts.MaxParallelTools
		o.Retry = h.opts.Retry
		o.Logger = h.opts.Logger
	})

	notices := loop.Execute(ctx, conv)
	envelopes := make(chan surface.Envelope, 64)

	go func() {
		defer close(envelopes)
		converter := surface.NewConverter()
		for n := range notices {
			h.deliver(ctx, envelopes, converter.Convert(n))

			tn, ok := n.(core.TextNotice)
			if !ok || !tn.Final || tn.Text == "" || h.opts.Classifier == nil {
				continue
			}
			if refined, ok := converter.Refine(ctx, h.opts.Classifier, tn.MessageID, tn.Text); ok {
				h.deliver(ctx, envelopes, refined)
			} else {
				h.opts.Logger.Warn("surface.refine.skipped", "message_id", tn.MessageID)
			}
		}
	}()

	return envelopes, nil
}

// connection returns the cached connection for a card, creating it on first
// use. Connections are keyed by the card's normalized address.
func (h *Host) connection(card *a2a.AgentCard) *a2a.Connection {
	key := strings.TrimRight(card.URL, "/")

	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.connections[key]; ok {
		return conn
	}
	conn := a2a.NewConnection(card, h.opts.ConnectionOptions...)
	h.connections[key] = conn
	return conn
}

func (h *Host) deliver(ctx context.Context, out chan<- surface.Envelope, env surface.Envelope) {
	select {
	case <-ctx.Done():
	case out <- env:
	}
}
