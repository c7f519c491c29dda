package loginflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStep struct {
	name        string
	order       int
	skip        bool
	executeFunc func(ctx context.Context, flowContext *FlowContext) (*StepResult, error)
}

func (m *mockStep) Name() string { return m.name }
func (m *mockStep) Order() int   { return m.order }

func (m *mockStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return m.skip
}

func (m *mockStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, flowContext)
	}
	return &StepResult{Continue: true}, nil
}

func recordingStep(name string, order int, calls *[]string) *mockStep {
	return &mockStep{
		name:  name,
		order: order,
		executeFunc: func(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
			*calls = append(*calls, name)
			return &StepResult{Continue: true, Data: map[string]interface{}{name: true}}, nil
		},
	}
}

func TestStepRegistry_GetOrderedSteps(t *testing.T) {
	registry := NewStepRegistry()
	registry.AddStep(&mockStep{name: "c", order: 300}).
		AddStep(&mockStep{name: "a", order: 100}).
		AddStep(&mockStep{name: "b", order: 200})

	var names []string
	for _, step := range registry.GetOrderedSteps() {
		names = append(names, step.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestFlowExecutor_RunsStepsInOrder(t *testing.T) {
	var calls []string
	executor := NewFlowBuilder().
		AddStep(recordingStep("second", 200, &calls)).
		AddStep(recordingStep("first", 100, &calls)).
		Build(&ServiceDependencies{})

	result := executor.Execute(context.Background(), Request{})
	assert.Nil(t, result.ErrorResponse)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestFlowExecutor_SkipsAndStops(t *testing.T) {
	var calls []string
	skipped := recordingStep("skipped", 100, &calls)
	skipped.skip = true
	stop := &mockStep{name: "stop", order: 200, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
		calls = append(calls, "stop")
		return &StepResult{Continue: false}, nil
	}}

	executor := NewFlowBuilder().
		AddStep(skipped).
		AddStep(stop).
		AddStep(recordingStep("after", 300, &calls)).
		Build(&ServiceDependencies{})

	executor.Execute(context.Background(), Request{})
	assert.Equal(t, []string{"stop"}, calls)
}

func TestFlowExecutor_StepError(t *testing.T) {
	var calls []string
	failing := &mockStep{name: "failing", order: 100, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
		return &StepResult{Error: &Error{Type: "test_error", Message: "nope"}}, nil
	}}

	result := NewFlowBuilder().
		AddStep(failing).
		AddStep(recordingStep("after", 200, &calls)).
		Build(&ServiceDependencies{}).
		Execute(context.Background(), Request{})

	require.NotNil(t, result.ErrorResponse)
	assert.Equal(t, "test_error", result.ErrorResponse.Type)
	assert.Equal(t, "failing", result.ErrorResponse.Step)
	assert.Empty(t, calls)
}

func TestFlowExecutor_ExecutionErrorIsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	failing := &mockStep{name: "storage", order: 100, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
		return nil, cause
	}}

	result := NewFlowBuilder().AddStep(failing).Build(&ServiceDependencies{}).Execute(context.Background(), Request{})

	require.NotNil(t, result.ErrorResponse)
	assert.Equal(t, ErrorTypeInternal, result.ErrorResponse.Type)
	assert.NotContains(t, result.ErrorResponse.Message, "connection reset")
	assert.ErrorIs(t, result.ErrorResponse, cause)
}
