package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/workflow"
)

func TestBindingFire(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("bound", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))

	eng := New()
	binding, err := eng.Bind(wf, "trigger")
	require.NoError(t, err)
	assert.Equal(t, "trigger", binding.TriggerName())

	run, err := binding.Fire(context.Background(), firedPayload(5))
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, run.Status)

	aOut, _ := run.State.Output("A")
	assert.Equal(t, item.Record{"n": 5}, aOut[node.PortMain].At(0).JSON)
	assert.Equal(t, node.StateCompleted, trigger.State())
}

func TestBindingFireNilPayloadRunsProcessor(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("bound-nil", reg, workflow.Settings{})
	addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))

	binding, err := New().Bind(wf, "trigger")
	require.NoError(t, err)

	run, err := binding.Fire(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, run.Status)
	assert.Equal(t, int32(1), runsOf(t, wf, "A"))
}

func TestBindUnknownTrigger(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("unbound", reg, workflow.Settings{})
	_, err := New().Bind(wf, "ghost")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}
