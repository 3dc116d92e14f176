package core

import "github.com/google/uuid"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem is the instruction turn seeded at conversation start.
	RoleSystem Role = "system"
	// RoleUser is an end-user message.
	RoleUser Role = "user"
	// RoleAssistant is a model-generated turn (text and/or tool calls).
	RoleAssistant Role = "assistant"
	// RoleTool is the result of a dispatched tool call.
	RoleTool Role = "tool"
)

// ToolCall is a completed function call request reassembled from stream
// fragments. Arguments holds the raw argument JSON text exactly as produced
// by the model; it may be syntactically incomplete if the stream ended
// mid-generation, validation happens at dispatch time.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	// Index is the slot assigned by the provider at first sight of the call.
	// Calls within one assistant turn are ordered by Index, not arrival time.
	Index int `json:"index"`
}

// Invocation pairs a ToolCall with its execution outcome. The result is
// always a string so it can be appended to the conversation verbatim;
// failures are carried as explicit result text, never as aborts.
type Invocation struct {
	Call    ToolCall `json:"call"`
	Result  string   `json:"result"`
	IsError bool     `json:"is_error"`
}

// Turn is one role-attributed message in a Conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text,omitempty"`
	// ToolCalls is populated on assistant turns that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// CallID / CallName reference the originating call on tool turns.
	CallID   string `json:"call_id,omitempty"`
	CallName string `json:"call_name,omitempty"`
}

// Conversation is an ordered, append-only sequence of Turns owned by exactly
// one orchestration run. Turns are never edited in place so the history stays
// replayable; callers persist a serialized form externally if needed.
type Conversation struct {
	turns []Turn
}

// NewConversation seeds a conversation with a system turn and the user's
// message. An empty system prompt omits the system turn.
func NewConversation(system, user string) *Conversation {
	c := &Conversation{}
	if system != "" {
		c.Append(Turn{Role: RoleSystem, Text: system})
	}
	c.Append(Turn{Role: RoleUser, Text: user})
	return c
}

// Append adds a turn to the end of the conversation.
func (c *Conversation) Append(t Turn) { c.turns = append(c.turns, t) }

// AppendAssistant records a completed assistant turn.
func (c *Conversation) AppendAssistant(text string, calls []ToolCall) {
	c.Append(Turn{Role: RoleAssistant, Text: text, ToolCalls: calls})
}

// AppendToolResult records the outcome of a dispatched tool call as a tool
// turn referencing the originating call id.
func (c *Conversation) AppendToolResult(inv Invocation) {
	c.Append(Turn{
		Role:     RoleTool,
		Text:     inv.Result,
		CallID:   inv.Call.ID,
		CallName: inv.Call.Name,
	})
}

// Turns returns a copy of the recorded turns preserving order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len reports the number of recorded turns.
func (c *Conversation) Len() int { return len(c.turns) }

// Last returns the most recent turn, or a zero Turn for an empty conversation.
func (c *Conversation) Last() Turn {
	if len(c.turns) == 0 {
		return Turn{}
	}
	return c.turns[len(c.turns)-1]
}

// NewID generates a new unique identifier for turns, calls and fragments.
func NewID() string { return uuid.NewString() }
