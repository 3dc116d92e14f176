package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
}

func newSumTool(t *testing.T) *FunctionTool {
	t.Helper()
	sum, err := NewFunctionTool("calculate_sum", "Calculate the sum of two numbers", sumSchema(),
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		})
	require.NoError(t, err)
	return sum
}

func TestFunctionToolCallValidArgs(t *testing.T) {
	sum := newSumTool(t)

	result, err := sum.Call(context.Background(), map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.0, result)
}

func TestFunctionToolRejectsMissingRequired(t *testing.T) {
	sum := newSumTool(t)

	_, err := sum.Call(context.Background(), map[string]any{"a": 1.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionToolRejectsWrongType(t *testing.T) {
	sum := newSumTool(t)

	_, err := sum.Call(context.Background(), map[string]any{"a": "one", "b": 2.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolWrapsExecutionError(t *testing.T) {
	failing, err := NewFunctionTool("fail", "always fails", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("boom")
		})
	require.NoError(t, err)

	_, err = failing.Call(context.Background(), nil)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestFunctionToolForwardsToolErrorUnchanged(t *testing.T) {
	custom := NewToolError("custom", "quota exceeded", "QUOTA")
	failing, err := NewFunctionTool("custom", "returns a custom code", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) {
			return nil, custom
		})
	require.NoError(t, err)

	_, err = failing.Call(context.Background(), nil)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Same(t, custom, toolErr)
}

func TestRegistryDefinitionsSortedByName(t *testing.T) {
	b := MustFunctionTool("bravo", "b", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) { return "", nil })
	a := MustFunctionTool("alpha", "a", map[string]any{"type": "object"}, func(context.Context, map[string]any) (any, error) { return "", nil })

	registry := NewRegistry(b, a)
	defs := registry.Definitions()

	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "bravo", defs[1].Name)
}
