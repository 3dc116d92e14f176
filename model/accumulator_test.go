package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldConcatenatesTextInArrivalOrder(t *testing.T) {
	turn := Fold([]Delta{{Text: "Your VM "}, {Text: "is being "}, {Text: "provisioned"}})

	assert.Equal(t, "Your VM is being provisioned", turn.Text)
	assert.Empty(t, turn.ToolCalls)
}

func TestFoldIsInvariantUnderRechunking(t *testing.T) {
	coarse := []Delta{
		{Text: "hello ", ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_1", Name: "provision_vm", Arguments: `{"cpu":2,`}}},
		{Text: "world", ToolCalls: []ToolCallFragment{{Index: 0, Arguments: `"ram":4}`}}},
	}
	fine := []Delta{
		{Text: "he"},
		{Text: "llo ", ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_1", Name: "provision"}}},
		{ToolCalls: []ToolCallFragment{{Index: 0, Name: "_vm", Arguments: `{"cpu"`}}},
		{Text: "wor", ToolCalls: []ToolCallFragment{{Index: 0, Arguments: `:2,"ram"`}}},
		{Text: "ld", ToolCalls: []ToolCallFragment{{Index: 0, Arguments: `:4}`}}},
	}

	assert.Equal(t, Fold(coarse), Fold(fine))
}

func TestFoldOrdersToolCallsByIndexNotArrival(t *testing.T) {
	turn := Fold([]Delta{
		{ToolCalls: []ToolCallFragment{{Index: 2, ID: "c", Name: "check_ticket_status"}}},
		{ToolCalls: []ToolCallFragment{{Index: 0, ID: "a", Name: "provision_vm"}}},
		{ToolCalls: []ToolCallFragment{{Index: 1, ID: "b", Name: "sap_access_request"}}},
	})

	require.Len(t, turn.ToolCalls, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{turn.ToolCalls[0].ID, turn.ToolCalls[1].ID, turn.ToolCalls[2].ID})
	assert.Equal(t, 0, turn.ToolCalls[0].Index)
	assert.Equal(t, 2, turn.ToolCalls[2].Index)
}

func TestFoldToleratesEmptyNameAndUnterminatedArguments(t *testing.T) {
	turn := Fold([]Delta{
		{ToolCalls: []ToolCallFragment{{Index: 0, ID: "call_x", Arguments: `{"cpu":2,"ra`}}},
	})

	require.Len(t, turn.ToolCalls, 1)
	assert.Empty(t, turn.ToolCalls[0].Name, "missing name surfaces as-is for dispatch to reject")
	assert.Equal(t, `{"cpu":2,"ra`, turn.ToolCalls[0].Arguments, "in-flight JSON is surfaced, not parsed")
}

func TestAccumulatorResetDiscardsAllState(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(Delta{Text: "partial", ToolCalls: []ToolCallFragment{{Index: 0, Name: "provision_vm"}}})
	acc.Reset()
	acc.Add(Delta{Text: "fresh"})

	turn := acc.Turn()
	assert.Equal(t, "fresh", turn.Text)
	assert.Empty(t, turn.ToolCalls)
}

func TestTransientClassification(t *testing.T) {
	base := errors.New("rate limited")
	err := Transient(base)

	assert.True(t, IsTransient(err))
	assert.True(t, IsTransient(fmt.Errorf("attempt failed: %w", err)))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsTransient(base))
	assert.Nil(t, Transient(nil))
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{429, 502, 503, 504, 529} {
		assert.True(t, TransientStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 500} {
		assert.False(t, TransientStatus(code), "status %d", code)
	}
}
