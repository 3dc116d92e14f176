// Package retry implements the bounded exponential-backoff controller that
// wraps one generation attempt, including full stream consumption. Only
// failures classified transient by the model layer are retried; a failed
// attempt's partially accumulated text and tool calls are discarded entirely
// so no duplicate or corrupted output crosses attempts.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hupe1980/agentsurface/logging"
	"github.com/hupe1980/agentsurface/model"
)

// GenerateFunc starts one fresh generation attempt.
type GenerateFunc func(ctx context.Context) (<-chan model.Delta, <-chan error)

// Config controls backoff behavior.
type Config struct {
	// MaxAttempts is the total number of attempts (including the first).
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed wait.
	MaxDelay time.Duration
	// Multiplier grows the wait per attempt; 2.0 gives exponential backoff.
	Multiplier float64
	// Jitter adds up to this fraction of extra wait. Additive only, so the
	// wait sequence stays non-decreasing.
	Jitter float64
}

// DefaultConfig returns a sensible default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// ExhaustedError is returned when all attempts failed transiently.
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Hooks observe a running attempt. Both are optional.
type Hooks struct {
	// OnDelta is called for every delta of the current attempt, enabling
	// progressive forwarding downstream. Consumers must treat forwarded
	// partials as replaceable: a later attempt re-emits from scratch.
	OnDelta func(model.Delta)
	// OnRetry is called before sleeping, with the wait actually slept.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// Options configures a Controller.
type Options struct {
	Config Config
	Logger logging.Logger
}

// Controller executes generation attempts with bounded retry.
type Controller struct {
	cfg    Config
	logger logging.Logger
}

// New creates a Controller with optional overrides.
func New(optFns ...func(o *Options)) *Controller {
	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.MaxAttempts < 1 {
		opts.Config.MaxAttempts = 1
	}
	return &Controller{cfg: opts.Config, logger: opts.Logger}
}

// Attempt runs generate until one attempt's stream completes, retrying
// transient failures with exponential backoff. Each attempt starts from a
// fresh generate call and a reset accumulator. Successful completion of the
// stream (even empty) exits the loop; fatal failures propagate immediately.
func (c *Controller) Attempt(ctx context.Context, generate GenerateFunc, hooks Hooks) (model.AccumulatedTurn, error) {
	acc := model.NewAccumulator()
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.AccumulatedTurn{}, err
		}

		acc.Reset()
		streamErr := c.consume(ctx, generate, acc, hooks)
		if streamErr == nil {
			return acc.Turn(), nil
		}
		if ctx.Err() != nil {
			return model.AccumulatedTurn{}, ctx.Err()
		}
		if !model.IsTransient(streamErr) {
			c.logger.Error("retry.attempt.fatal", "attempt", attempt+1, "error", streamErr.Error())
			return model.AccumulatedTurn{}, streamErr
		}

		lastErr = streamErr
		if attempt == c.cfg.MaxAttempts-1 {
			break
		}

		wait := c.backoff(attempt)
		c.logger.Warn("retry.attempt.transient", "attempt", attempt+1, "wait_ms", wait.Milliseconds(), "error", streamErr.Error())
		if hooks.OnRetry != nil {
			hooks.OnRetry(attempt+1, wait, streamErr)
		}
		select {
		case <-ctx.Done():
			return model.AccumulatedTurn{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	return model.AccumulatedTurn{}, &ExhaustedError{Attempts: c.cfg.MaxAttempts, LastErr: lastErr}
}

// consume drains one attempt's stream into the accumulator. It returns nil
// only when the delta channel closed without a reported error.
func (c *Controller) consume(ctx context.Context, generate GenerateFunc, acc *model.Accumulator, hooks Hooks) error {
	respCh, errCh := generate(ctx)
	var streamErr error
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			acc.Add(d)
			if hooks.OnDelta != nil {
				hooks.OnDelta(d)
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && streamErr == nil {
				streamErr = err
			}
		}
	}
	return streamErr
}

// backoff computes min(base * multiplier^attempt, cap) plus additive jitter.
func (c *Controller) backoff(attempt int) time.Duration {
	multiplier := c.cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	wait := float64(c.cfg.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if c.cfg.MaxDelay > 0 && wait > float64(c.cfg.MaxDelay) {
		wait = float64(c.cfg.MaxDelay)
	}
	if c.cfg.Jitter > 0 {
		wait += wait * c.cfg.Jitter * rand.Float64() //nolint:gosec // jitter doesn't need crypto rand
		if c.cfg.MaxDelay > 0 && wait > float64(c.cfg.MaxDelay) {
			wait = float64(c.cfg.MaxDelay)
		}
	}
	return time.Duration(wait)
}
