package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsurface/core"
)

func TestGetOrCreateSeedsSystemPromptOnce(t *testing.T) {
	s := NewInMemoryStore()

	conv, err := s.GetOrCreate("s1", "You are an IT assistant.")
	require.NoError(t, err)
	require.Equal(t, 1, conv.Len())
	assert.Equal(t, core.RoleSystem, conv.Last().Role)

	conv.Append(core.Turn{Role: core.RoleUser, Text: "hello"})

	again, err := s.GetOrCreate("s1", "ignored on reuse")
	require.NoError(t, err)
	assert.Same(t, conv, again)
	assert.Equal(t, 2, again.Len())
}

func TestDeleteForgetsHistory(t *testing.T) {
	s := NewInMemoryStore()

	conv, err := s.GetOrCreate("s1", "sys")
	require.NoError(t, err)
	conv.Append(core.Turn{Role: core.RoleUser, Text: "hello"})
	require.NoError(t, s.Delete("s1"))

	fresh, err := s.GetOrCreate("s1", "sys")
	require.NoError(t, err)
	assert.NotSame(t, conv, fresh)
	assert.Equal(t, 1, fresh.Len())
	assert.Equal(t, 1, s.Len())
}
