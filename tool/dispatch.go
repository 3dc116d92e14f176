package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/logging"
)

// DispatcherConfig configures batch dispatch.
type DispatcherConfig struct {
	// MaxParallel caps concurrent tool executions per batch.
	// 0 or <1 means no explicit limit (batch size).
	MaxParallel int
	Logger      logging.Logger
}

// Dispatcher resolves completed tool calls against a registry and executes
// them. Calls within one batch may run concurrently; results are always
// restored to the order established by the call index before being returned,
// so the conversation grows deterministically. Every failure mode (unknown
// tool, invalid arguments, execution error, panic) is captured as an explicit
// result string, never as an abort.
type Dispatcher struct {
	cfg DispatcherConfig
}

// NewDispatcher constructs a Dispatcher with optional overrides.
func NewDispatcher(optFns ...func(o *DispatcherConfig)) *Dispatcher {
	cfg := DispatcherConfig{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &Dispatcher{cfg: cfg}
}

// Dispatch executes a batch of tool calls and returns one Invocation per
// call, in input (index) order. The onStart callback, if set, fires before
// each invocation in input order, enabling "tool call started" notices.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	registry Registry,
	calls []core.ToolCall,
	onStart func(core.ToolCall),
) []core.Invocation {
	n := len(calls)
	if n == 0 {
		return nil
	}

	if onStart != nil {
		for _, call := range calls {
			onStart(call)
		}
	}

	// Fast path: single call, execute inline.
	if n == 1 {
		return []core.Invocation{d.Invoke(ctx, registry, calls[0])}
	}

	maxPar := d.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.Invocation, n)
	sem := make(chan struct{}, maxPar)
	var wg sync.WaitGroup

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil { // pre-check cancellation
			results[i] = failedInvocation(calls[i], fmt.Sprintf("canceled before execution: %v", ctx.Err()))
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = d.Invoke(ctx, registry, call)
		}(i, calls[i])
	}
	wg.Wait()

	d.cfg.Logger.Debug(
		"tool.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// Invoke executes one tool call. The returned Invocation always carries a
// string result; failures set IsError and describe the problem so the model
// can adapt on the next turn.
func (d *Dispatcher) Invoke(ctx context.Context, registry Registry, call core.ToolCall) core.Invocation {
	logger := d.cfg.Logger

	impl, ok := registry[call.Name]
	if !ok {
		logger.Warn("tool.call.unknown", "tool", call.Name, "call_id", call.ID)
		return failedInvocation(call, fmt.Sprintf("tool not found: %q is not a registered tool", call.Name))
	}

	args, err := parseArguments(call.Arguments)
	if err != nil {
		logger.Warn("tool.call.bad_arguments", "tool", call.Name, "call_id", call.ID, "error", err.Error())
		return failedInvocation(call, fmt.Sprintf("invalid arguments for %s: %v", call.Name, err))
	}

	start := time.Now()
	var result any
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered: %v", r)
				logger.Error("tool.call.panic", "tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = impl.Call(ctx, args)
	}()
	dur := time.Since(start)

	if err != nil {
		logger.Error("tool.call.error", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds(), "error", err.Error())
		var toolErr *ToolError
		if errors.As(err, &toolErr) && toolErr.Code == "VALIDATION_ERROR" {
			return failedInvocation(call, fmt.Sprintf("invalid arguments for %s: %s", call.Name, toolErr.Message))
		}
		return failedInvocation(call, fmt.Sprintf("tool execution failed: %v", err))
	}

	logger.Info("tool.call.success", "tool", call.Name, "call_id", call.ID, "duration_ms", dur.Milliseconds())
	return core.Invocation{Call: call, Result: stringify(result)}
}

// parseArguments decodes the accumulated argument JSON text. Empty text is an
// empty argument map.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	return args, nil
}

// stringify renders a tool result as conversation text.
func stringify(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func failedInvocation(call core.ToolCall, msg string) core.Invocation {
	return core.Invocation{Call: call, Result: msg, IsError: true}
}
