package core

import "time"

// Notice is a semantic event emitted while an orchestration run progresses.
// Concrete notice types implement the unexported isNotice marker enabling a
// closed set, mirroring how content parts are modeled elsewhere.
type Notice interface{ isNotice() }

// TextNotice carries assistant text for one turn. MessageID is stable across
// all partial updates of the same turn so consumers replace rather than
// append; Final marks the completed text of the turn.
type TextNotice struct {
	MessageID string
	Text      string
	Final     bool
}

func (TextNotice) isNotice() {}

// ToolCallNotice announces that a tool invocation is about to start.
type ToolCallNotice struct {
	CallID    string
	Name      string
	Arguments string
}

func (ToolCallNotice) isNotice() {}

// ToolResultNotice carries the outcome of a finished tool invocation.
type ToolResultNotice struct {
	CallID  string
	Name    string
	Result  string
	IsError bool
}

func (ToolResultNotice) isNotice() {}

// RetryNotice signals that a generation attempt failed transiently and the
// run will wait before retrying. Wait is the duration actually slept.
type RetryNotice struct {
	Attempt int
	Wait    time.Duration
	Reason  string
}

func (RetryNotice) isNotice() {}

// ErrorNotice terminates a run with a user-visible error. Exactly one is
// emitted per failed run.
type ErrorNotice struct {
	Message string
}

func (ErrorNotice) isNotice() {}
