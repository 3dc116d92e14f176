package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsurface/model"
)

func fastConfig(maxAttempts int) func(o *Options) {
	return func(o *Options) {
		o.Config = Config{
			MaxAttempts: maxAttempts,
			BaseDelay:   time.Millisecond,
			MaxDelay:    50 * time.Millisecond,
			Multiplier:  2.0,
			Jitter:      0.1,
		}
	}
}

func generateFrom(m model.Model) GenerateFunc {
	return func(ctx context.Context) (<-chan model.Delta, <-chan error) {
		return m.GenerateStream(ctx, model.Request{})
	}
}

func TestAttemptSucceedsFirstTry(t *testing.T) {
	m := model.NewMockModel("hello")
	ctrl := New(fastConfig(3))

	turn, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "hello", turn.Text)
	assert.Equal(t, 1, m.Calls())
}

func TestAttemptRetriesTransientThenSucceeds(t *testing.T) {
	transient := model.Transient(errors.New("rate limited"))
	m := model.NewScriptedModel(
		model.MockAttempt{Deltas: []model.Delta{{Text: "garbage "}}, Err: transient},
		model.MockAttempt{Deltas: []model.Delta{{Text: "partial"}}, Err: transient},
		model.MockAttempt{Deltas: []model.Delta{{Text: "clean answer"}}},
	)
	ctrl := New(fastConfig(5))

	var waits []time.Duration
	turn, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{
		OnRetry: func(attempt int, wait time.Duration, err error) {
			waits = append(waits, wait)
			assert.True(t, model.IsTransient(err))
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "clean answer", turn.Text, "only the successful attempt's deltas survive")
	assert.Equal(t, 3, m.Calls())
	require.Len(t, waits, 2, "exactly k retry notices for k transient failures")
	assert.GreaterOrEqual(t, waits[1], waits[0], "waits never decrease")
}

func TestAttemptExhaustsAfterMaxAttempts(t *testing.T) {
	transient := model.Transient(errors.New("overloaded"))
	m := model.NewScriptedModel(model.MockAttempt{Err: transient})
	ctrl := New(fastConfig(3))

	_, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, m.Calls())
	assert.True(t, model.IsTransient(errors.Unwrap(exhausted)))
}

func TestAttemptPropagatesFatalImmediately(t *testing.T) {
	fatal := errors.New("invalid api key")
	m := model.NewScriptedModel(model.MockAttempt{Err: fatal})
	ctrl := New(fastConfig(3))

	_, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, m.Calls(), "fatal failures never retry")
}

func TestAttemptDiscardsFailedPartialToolCalls(t *testing.T) {
	transient := model.Transient(errors.New("cut off"))
	m := model.NewScriptedModel(
		model.MockAttempt{
			Deltas: []model.Delta{{ToolCalls: []model.ToolCallFragment{{Index: 0, ID: "stale", Name: "provision_vm", Arguments: `{"cpu"`}}}},
			Err:    transient,
		},
		model.MockAttempt{
			Deltas: []model.Delta{{ToolCalls: []model.ToolCallFragment{{Index: 0, ID: "fresh", Name: "provision_vm", Arguments: `{"cpu":2}`}}}},
		},
	)
	ctrl := New(fastConfig(3))

	turn, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{})
	require.NoError(t, err)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "fresh", turn.ToolCalls[0].ID)
	assert.Equal(t, `{"cpu":2}`, turn.ToolCalls[0].Arguments)
}

func TestAttemptEmptyStreamCountsAsSuccess(t *testing.T) {
	m := model.NewScriptedModel(model.MockAttempt{})
	ctrl := New(fastConfig(3))

	turn, err := ctrl.Attempt(context.Background(), generateFrom(m), Hooks{})
	require.NoError(t, err)
	assert.Empty(t, turn.Text)
	assert.Empty(t, turn.ToolCalls)
}

func TestAttemptHonorsCancellationDuringBackoff(t *testing.T) {
	transient := model.Transient(errors.New("busy"))
	m := model.NewScriptedModel(model.MockAttempt{Err: transient})
	ctrl := New(func(o *Options) {
		o.Config = Config{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2.0}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Attempt(ctx, generateFrom(m), Hooks{})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("attempt did not return promptly after cancellation")
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	ctrl := New(func(o *Options) {
		o.Config = Config{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond, Multiplier: 2.0}
	})

	assert.Equal(t, 10*time.Millisecond, ctrl.backoff(0))
	assert.Equal(t, 20*time.Millisecond, ctrl.backoff(1))
	assert.Equal(t, 40*time.Millisecond, ctrl.backoff(2))
	assert.Equal(t, 40*time.Millisecond, ctrl.backoff(3), "wait is capped")
}
