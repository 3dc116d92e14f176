package model

import (
	"context"
	"sync"
)

// MockAttempt scripts the outcome of one GenerateStream call: the deltas to
// emit followed by an optional error.
type MockAttempt struct {
	Deltas []Delta
	Err    error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Successive GenerateStream calls replay scripted attempts in order; the last
// attempt is sticky once the script is exhausted.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	attempts []MockAttempt
	calls    int
}

// NewMockModel constructs a MockModel that streams the given text one rune at
// a time and completes successfully.
func NewMockModel(text string) *MockModel {
	deltas := make([]Delta, 0, len(text))
	for _, r := range text {
		deltas = append(deltas, Delta{Text: string(r)})
	}
	m := &MockModel{info: Info{Name: "mock", Provider: "mock", SupportsStreaming: true}}
	m.AddAttempt(MockAttempt{Deltas: deltas})
	return m
}

// NewScriptedModel constructs a MockModel from explicit attempts.
func NewScriptedModel(attempts ...MockAttempt) *MockModel {
	return &MockModel{
		info:     Info{Name: "mock", Provider: "mock", SupportsStreaming: true},
		attempts: attempts,
	}
}

// AddAttempt appends a scripted attempt.
func (m *MockModel) AddAttempt(a MockAttempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
}

// Calls reports how many times GenerateStream has been invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GenerateStream implements Model by replaying the next scripted attempt.
func (m *MockModel) GenerateStream(ctx context.Context, _ Request) (<-chan Delta, <-chan error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	if idx >= len(m.attempts) {
		idx = len(m.attempts) - 1
	}
	var attempt MockAttempt
	if idx >= 0 {
		attempt = m.attempts[idx]
	}
	m.mu.Unlock()

	out := make(chan Delta, len(attempt.Deltas)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		for _, d := range attempt.Deltas {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- d:
			}
		}
		if attempt.Err != nil {
			errCh <- attempt.Err
		}
	}()

	return out, errCh
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }
