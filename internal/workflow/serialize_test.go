package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/node"
)

func exportFixture(t *testing.T, reg *node.Registry) *Workflow {
	t.Helper()
	wf := New("fixture", reg, Settings{EnableParallelExecution: true, MaxParallelExecutions: 4})
	wf.StaticData = map[string]any{"env": "test"}

	trigger := build(t, reg, "starter", "t")
	require.NoError(t, wf.AddTriggerNode(trigger))

	a := build(t, reg, "worker", "a")
	a.Disabled = true
	a.Retry = node.Retry{MaxTries: 3, WaitMs: 50}
	a.Annotation = "first step"
	require.NoError(t, a.Setup(map[string]any{}))
	require.NoError(t, wf.AddNode(a))

	b := build(t, reg, "worker", "b")
	b.ContinueOnFail = true
	require.NoError(t, wf.AddNode(b))

	require.NoError(t, wf.LinkNodes("t", node.PortMain, "a", node.PortMain))
	require.NoError(t, wf.LinkNodes("a", node.PortMain, "b", node.PortMain))
	return wf
}

func TestExportImportRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	wf := exportFixture(t, reg)

	data, err := wf.Export()
	require.NoError(t, err)

	back, err := Import(data, reg, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, wf.ID, back.ID)
	assert.Equal(t, wf.Name, back.Name)
	assert.Equal(t, wf.Settings, back.Settings)
	assert.Equal(t, wf.StaticData, back.StaticData)
	assert.Equal(t, wf.Links(), back.Links())
	assert.Equal(t, wf.NodeNames(), back.NodeNames())

	a, ok := back.GetNode("a")
	require.True(t, ok)
	assert.True(t, a.Disabled)
	assert.Equal(t, node.Retry{MaxTries: 3, WaitMs: 50}, a.Retry)
	assert.Equal(t, "first step", a.Annotation)
	assert.False(t, a.IsTrigger())

	b, ok := back.GetNode("b")
	require.True(t, ok)
	assert.True(t, b.ContinueOnFail)

	trigger, ok := back.GetTrigger("t")
	require.True(t, ok)
	assert.True(t, trigger.IsTrigger())

	// The round trip is stable: exporting again yields the same envelope.
	again, err := back.Export()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestImportUnknownNodeType(t *testing.T) {
	reg := testRegistry(t)
	wf := exportFixture(t, reg)
	data, err := wf.Export()
	require.NoError(t, err)

	// A registry without "worker" cannot restore the fixture.
	sparse := testRegistryOnlyStarter(t)

	_, err = Import(data, sparse, ImportOptions{})
	assert.Error(t, err)

	back, err := Import(data, sparse, ImportOptions{AllowMissing: true})
	require.NoError(t, err)
	_, ok := back.GetNode("a")
	assert.False(t, ok, "unknown nodes are skipped")
	_, ok = back.GetTrigger("t")
	assert.True(t, ok)
	assert.Empty(t, back.Links(), "links touching skipped nodes are dropped")
}

func testRegistryOnlyStarter(t *testing.T) *node.Registry {
	t.Helper()
	reg := node.NewRegistry(nil)
	require.NoError(t, reg.Register("starter", func() node.Processor {
		return &stubProcessor{def: node.Definition{
			Type:      "starter",
			Version:   "1.0.0",
			IsTrigger: true,
			Outputs:   []node.Port{{Name: node.PortMain, LinkType: node.LinkStandard}},
		}}
	}))
	return reg
}

func TestImportDanglingLink(t *testing.T) {
	reg := testRegistry(t)
	data := []byte(`{
		"version": 1,
		"id": "w1",
		"name": "broken",
		"nodes": [],
		"triggers": [],
		"links": [
			{"sourceNode": "ghost", "sourcePort": "main", "targetNode": "gone", "targetPort": "main"}
		],
		"settings": {"enableParallelExecution": false, "maxParallelExecutions": 0}
	}`)
	_, err := Import(data, reg, ImportOptions{})
	assert.Error(t, err)
}

func TestImportAppliesDefaults(t *testing.T) {
	reg := testRegistry(t)
	// No settings block, and a retrying node without a wait.
	data := []byte(`{
		"version": 1,
		"id": "w1",
		"name": "defaulted",
		"nodes": [{
			"id": "n1", "name": "a", "nodeType": "worker", "version": "1.0.0",
			"position": {"x": 0, "y": 0}, "config": {},
			"inputs": [], "outputs": [], "isTrigger": false, "disabled": false,
			"retry": {"maxTries": 3, "waitMs": 0}, "continueOnFail": false
		}],
		"triggers": [],
		"links": []
	}`)

	back, err := Import(data, reg, ImportOptions{
		DefaultSettings:    &Settings{EnableParallelExecution: true, MaxParallelExecutions: 8},
		DefaultRetryWaitMs: 250,
	})
	require.NoError(t, err)

	assert.Equal(t, Settings{EnableParallelExecution: true, MaxParallelExecutions: 8}, back.Settings)

	a, ok := back.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, node.Retry{MaxTries: 3, WaitMs: 250}, a.Retry)
}

func TestImportExplicitSettingsWin(t *testing.T) {
	reg := testRegistry(t)
	wf := exportFixture(t, reg)
	data, err := wf.Export()
	require.NoError(t, err)

	back, err := Import(data, reg, ImportOptions{
		DefaultSettings:    &Settings{EnableParallelExecution: false, MaxParallelExecutions: 1},
		DefaultRetryWaitMs: 999,
	})
	require.NoError(t, err)

	assert.Equal(t, wf.Settings, back.Settings, "the envelope's settings block wins over defaults")

	a, ok := back.GetNode("a")
	require.True(t, ok)
	assert.Equal(t, node.Retry{MaxTries: 3, WaitMs: 50}, a.Retry, "an explicit wait is never overwritten")
}

func TestImportBadVersion(t *testing.T) {
	reg := testRegistry(t)
	_, err := Import([]byte(`{"version": 99, "name": "x"}`), reg, ImportOptions{})
	assert.Error(t, err)
}
