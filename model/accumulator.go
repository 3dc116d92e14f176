package model

import (
	"sort"
	"strings"

	"github.com/hupe1980/agentsurface/core"
)

// AccumulatedTurn is the result of folding all deltas of one generation
// attempt: full text (possibly empty) and the completed tool calls ordered by
// the index assigned at first sight.
type AccumulatedTurn struct {
	Text      string
	ToolCalls []core.ToolCall
}

// HasToolCalls reports whether the turn requests tool execution.
func (t AccumulatedTurn) HasToolCalls() bool { return len(t.ToolCalls) > 0 }

// callSlot aggregates partial tool call fragments for one index. Fragments
// concatenate in arrival order and never replace earlier content.
type callSlot struct {
	id   strings.Builder
	name strings.Builder
	args strings.Builder
}

// Accumulator folds an ordered sequence of deltas into an AccumulatedTurn.
// It is reused across retry attempts; Reset must be called at the start of
// each attempt so a failed stream's partial state never leaks into the next.
// Not safe for concurrent use (stream consumption is single-consumer).
type Accumulator struct {
	text  strings.Builder
	slots map[int]*callSlot
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{slots: map[int]*callSlot{}}
}

// Reset discards all accumulated state.
func (a *Accumulator) Reset() {
	a.text.Reset()
	a.slots = map[int]*callSlot{}
}

// Add folds one delta. Text concatenates in arrival order; tool call
// fragments accumulate per index, the first delta bearing an index
// establishes the slot.
func (a *Accumulator) Add(d Delta) {
	a.text.WriteString(d.Text)
	for _, fr := range d.ToolCalls {
		slot, ok := a.slots[fr.Index]
		if !ok {
			slot = &callSlot{}
			a.slots[fr.Index] = slot
		}
		slot.id.WriteString(fr.ID)
		slot.name.WriteString(fr.Name)
		slot.args.WriteString(fr.Arguments)
	}
}

// Turn materializes the folded state. Tool calls are sorted by index so the
// ordering is deterministic independent of transport interleaving. A slot
// whose name never arrived yields a ToolCall with an empty name; rejecting it
// is deferred to dispatch so the fold itself never fails.
func (a *Accumulator) Turn() AccumulatedTurn {
	indices := make([]int, 0, len(a.slots))
	for idx := range a.slots {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	calls := make([]core.ToolCall, 0, len(indices))
	for _, idx := range indices {
		slot := a.slots[idx]
		calls = append(calls, core.ToolCall{
			ID:        slot.id.String(),
			Name:      slot.name.String(),
			Arguments: slot.args.String(),
			Index:     idx,
		})
	}

	return AccumulatedTurn{Text: a.text.String(), ToolCalls: calls}
}

// Fold is a convenience for folding a complete delta sequence at once.
func Fold(deltas []Delta) AccumulatedTurn {
	acc := NewAccumulator()
	for _, d := range deltas {
		acc.Add(d)
	}
	return acc.Turn()
}
