package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/logging"
	"github.com/hupe1980/agentsurface/model"
	"github.com/hupe1980/agentsurface/retry"
	"github.com/hupe1980/agentsurface/tool"
)

// State labels the phase a run is in. Exposed mainly for logging and tests.
type State string

const (
	// StateGenerating means a model attempt (or its retries) is in flight.
	StateGenerating State = "generating"
	// StateDispatching means tool calls of the current turn are executing.
	StateDispatching State = "dispatching"
	// StateDone means the run finished with a final assistant text.
	StateDone State = "done"
	// StateFailed means the run terminated with an error notice.
	StateFailed State = "failed"
)

// DefaultMaxTurns bounds runaway reason-act cycles.
const DefaultMaxTurns = 8

// Options configures a TurnLoop.
type Options struct {
	// MaxTurns caps the number of assistant turns per run.
	MaxTurns int
	// Retry controls backoff for transient generation failures.
	Retry retry.Config
	// MaxParallelTools caps concurrent tool executions per turn.
	MaxParallelTools int
	Logger           logging.Logger
}

// TurnLoop runs reason-act cycles against one model with one tool registry.
// A TurnLoop is stateless across runs and safe for concurrent Execute calls;
// each run owns its conversation.
type TurnLoop struct {
	model      model.Model
	registry   tool.Registry
	dispatcher *tool.Dispatcher
	controller *retry.Controller
	opts       Options
}

// New creates a TurnLoop for the given model and tool registry.
func New(m model.Model, registry tool.Registry, optFns ...func(o *Options)) *TurnLoop {
	opts := Options{
		MaxTurns: DefaultMaxTurns,
		Retry:    retry.DefaultConfig(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTurns < 1 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &TurnLoop{
		model:    m,
		registry: registry,
		dispatcher: tool.NewDispatcher(func(o *tool.DispatcherConfig) {
			o.MaxParallel = opts.MaxParallelTools
			o.Logger = opts.Logger
		}),
		controller: retry.New(func(o *retry.Options) {
			o.Config = opts.Retry
			o.Logger = opts.Logger
		}),
		opts: opts,
	}
}

// Execute starts a run over the given conversation and returns the notice
// stream. The channel is closed when the run ends; a failed run emits exactly
// one ErrorNotice as its last value. The conversation is owned by the run
// until the channel closes.
func (l *TurnLoop) Execute(ctx context.Context, conv *core.Conversation) <-chan core.Notice {
	notices := make(chan core.Notice, 64)
	go func() {
		defer close(notices)
		l.run(ctx, conv, notices)
	}()
	return notices
}

func (l *TurnLoop) run(ctx context.Context, conv *core.Conversation, notices chan<- core.Notice) {
	logger := l.opts.Logger
	tools := l.registry.Definitions()

	for turn := 0; turn < l.opts.MaxTurns; turn++ {
		messageID := core.NewID()
		logger.Debug("run.turn.start", "turn", turn+1, "state", string(StateGenerating), "message_id", messageID)

		result, err := l.generateTurn(ctx, conv, tools, messageID, notices)
		if err != nil {
			logger.Error("run.turn.generate_failed", "turn", turn+1, "error", err.Error())
			l.emit(ctx, notices, core.ErrorNotice{Message: userFacing(err)})
			return
		}

		conv.AppendAssistant(result.Text, result.ToolCalls)

		if !result.HasToolCalls() {
			l.emit(ctx, notices, core.TextNotice{MessageID: messageID, Text: result.Text, Final: true})
			logger.Info("run.complete", "turns", turn+1, "state", string(StateDone))
			return
		}

		// Text accompanying tool calls is complete for this turn; close it
		// out before the tools run so the surface shows it settled.
		if result.Text != "" {
			l.emit(ctx, notices, core.TextNotice{MessageID: messageID, Text: result.Text, Final: true})
		}

		logger.Debug("run.turn.dispatch", "turn", turn+1, "state", string(StateDispatching), "calls", len(result.ToolCalls))
		invocations := l.dispatcher.Dispatch(ctx, l.registry, result.ToolCalls, func(call core.ToolCall) {
			l.emit(ctx, notices, core.ToolCallNotice{CallID: call.ID, Name: call.Name, Arguments: call.Arguments})
		})

		for _, inv := range invocations {
			l.emit(ctx, notices, core.ToolResultNotice{
				CallID:  inv.Call.ID,
				Name:    inv.Call.Name,
				Result:  inv.Result,
				IsError: inv.IsError,
			})
			conv.AppendToolResult(inv)
		}

		if ctx.Err() != nil {
			l.emit(ctx, notices, core.ErrorNotice{Message: userFacing(ctx.Err())})
			return
		}
	}

	logger.Warn("run.turn_limit", "max_turns", l.opts.MaxTurns, "state", string(StateFailed))
	l.emit(ctx, notices, core.ErrorNotice{
		Message: fmt.Sprintf("run stopped after %d turns without a final answer", l.opts.MaxTurns),
	})
}

// generateTurn executes one retried generation. Partial text is forwarded
// under the turn's message id with the accumulated prefix so far; a retry
// restarts the prefix from scratch, which consumers see as an in-place
// replacement.
func (l *TurnLoop) generateTurn(
	ctx context.Context,
	conv *core.Conversation,
	tools []model.ToolDefinition,
	messageID string,
	notices chan<- core.Notice,
) (model.AccumulatedTurn, error) {
	var partial strings.Builder

	generate := func(ctx context.Context) (<-chan model.Delta, <-chan error) {
		partial.Reset()
		return l.model.GenerateStream(ctx, model.Request{Turns: conv.Turns(), Tools: tools})
	}

	hooks := retry.Hooks{
		OnDelta: func(d model.Delta) {
			if d.Text == "" {
				return
			}
			partial.WriteString(d.Text)
			l.emit(ctx, notices, core.TextNotice{MessageID: messageID, Text: partial.String()})
		},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			l.emit(ctx, notices, core.RetryNotice{Attempt: attempt, Wait: wait, Reason: userFacing(err)})
		},
	}

	return l.controller.Attempt(ctx, generate, hooks)
}

// emit delivers a notice unless the run context is already gone.
func (l *TurnLoop) emit(ctx context.Context, notices chan<- core.Notice, n core.Notice) {
	select {
	case <-ctx.Done():
	case notices <- n:
	}
}

// userFacing renders an error as surface text.
func userFacing(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
