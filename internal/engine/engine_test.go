package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/workflow"
)

// testProc is a configurable processor with an execution counter.
type testProc struct {
	def  node.Definition
	runs atomic.Int32
	fn   func(ctx context.Context, pc *node.ProcessContext) (node.Output, error)
}

func (p *testProc) Definition() node.Definition   { return p.def }
func (p *testProc) Validate(map[string]any) error { return nil }
func (p *testProc) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	p.runs.Add(1)
	if p.fn == nil {
		return node.Output{}, nil
	}
	return p.fn(ctx, pc)
}

func runsOf(t *testing.T, wf *workflow.Workflow, name string) int32 {
	t.Helper()
	n, ok := wf.GetNode(name)
	require.True(t, ok)
	return n.Processor().(*testProc).runs.Load()
}

func ports(names ...string) []node.Port {
	out := make([]node.Port, 0, len(names))
	for _, name := range names {
		out = append(out, node.Port{Name: name, DataType: "any", LinkType: node.LinkStandard})
	}
	return out
}

// testRegistry registers the behaviors the engine tests drive. The nil
// validator keeps test configs free-form.
func testRegistry(t *testing.T) *node.Registry {
	t.Helper()
	reg := node.NewRegistry(nil)

	require.NoError(t, reg.Register("probe-trigger", func() node.Processor {
		return &testProc{def: node.Definition{
			Type: "probe-trigger", Version: "1.0.0", IsTrigger: true,
			Outputs: ports(node.PortMain),
		}}
	}))

	// pass forwards its main input unchanged, shape included.
	require.NoError(t, reg.Register("pass", func() node.Processor {
		p := &testProc{def: node.Definition{
			Type: "pass", Version: "1.0.0",
			Inputs:  ports(node.PortMain),
			Outputs: ports(node.PortMain, node.PortError),
		}}
		p.fn = func(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
			return node.Output{node.PortMain: pc.Input[node.PortMain]}, nil
		}
		return p
	}))

	// sleep waits config "ms" honoring cancellation, then emits one record
	// with config "value".
	require.NoError(t, reg.Register("sleep", func() node.Processor {
		p := &testProc{def: node.Definition{
			Type: "sleep", Version: "1.0.0",
			Inputs:  ports(node.PortMain),
			Outputs: ports(node.PortMain),
		}}
		p.fn = func(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
			ms, _ := pc.Config["ms"].(int)
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{
				"value": pc.Config["value"],
			}))}, nil
		}
		return p
	}))

	// sum adds the "value" fields of both fan-in ports.
	require.NoError(t, reg.Register("sum", func() node.Processor {
		p := &testProc{def: node.Definition{
			Type: "sum", Version: "1.0.0",
			Inputs:  ports("in1", "in2"),
			Outputs: ports(node.PortMain),
		}}
		p.fn = func(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
			total := 0
			for _, port := range []string{"in1", "in2"} {
				for _, it := range pc.InputItems(port) {
					if v, ok := it.JSON["value"].(int); ok {
						total += v
					}
				}
			}
			return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{
				"sum": total,
			}))}, nil
		}
		return p
	}))

	// flaky fails until the attempt configured in "succeedOn".
	require.NoError(t, reg.Register("flaky", func() node.Processor {
		p := &testProc{def: node.Definition{
			Type: "flaky", Version: "1.0.0",
			Inputs:  ports(node.PortMain),
			Outputs: ports(node.PortMain),
		}}
		p.fn = func(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
			succeedOn, _ := pc.Config["succeedOn"].(int)
			if int(p.runs.Load()) < succeedOn {
				return nil, fmt.Errorf("attempt %d failed", p.runs.Load())
			}
			return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{
				"attempt": int(p.runs.Load()),
			}))}, nil
		}
		return p
	}))

	require.NoError(t, reg.Register("broken", func() node.Processor {
		p := &testProc{def: node.Definition{
			Type: "broken", Version: "1.0.0",
			Inputs:  ports(node.PortMain),
			Outputs: ports(node.PortMain, node.PortError),
		}}
		p.fn = func(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
			return nil, errors.New("always broken")
		}
		return p
	}))

	return reg
}

func addNode(t *testing.T, wf *workflow.Workflow, nodeType, name string, config map[string]any) *node.Node {
	t.Helper()
	n, err := wf.Registry().New(nodeType, name)
	require.NoError(t, err)
	require.NoError(t, n.Setup(config))
	require.NoError(t, wf.AddNode(n))
	return n
}

func addTrigger(t *testing.T, wf *workflow.Workflow) *node.Node {
	t.Helper()
	n, err := wf.Registry().New("probe-trigger", "trigger")
	require.NoError(t, err)
	require.NoError(t, wf.AddTriggerNode(n))
	return n
}

func firedPayload(n int) node.Output {
	return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{"n": n}))}
}

func TestLinearExecution(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("linear", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "pass", "A", nil)
	b := addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))

	require.NoError(t, trigger.Fire(firedPayload(42)))

	eng := New()
	run, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, run.Status)
	assert.Equal(t, workflow.StatusCompleted, wf.Status())
	assert.Equal(t, node.StateCompleted, a.State())
	assert.Equal(t, node.StateCompleted, b.State())
	assert.Equal(t, int32(1), runsOf(t, wf, "A"))
	assert.Equal(t, int32(1), runsOf(t, wf, "B"))

	aOut, ok := run.State.Output("A")
	require.True(t, ok)
	bOut, ok := run.State.Output("B")
	require.True(t, ok)
	require.Equal(t, 1, bOut[node.PortMain].Len())
	assert.Equal(t, aOut[node.PortMain].At(0).JSON, bOut[node.PortMain].At(0).JSON)
	assert.Equal(t, item.Record{"n": 42}, bOut[node.PortMain].At(0).JSON)
}

func TestSingleRecordShapeSurvivesSingleLink(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("shape", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	aOut, _ := run.State.Output("A")
	assert.True(t, aOut[node.PortMain].IsSingle(),
		"one link from a single-record producer keeps the single shape")
}

func TestParallelFanIn(t *testing.T) {
	build := func(settings workflow.Settings) (*workflow.Workflow, *node.Node) {
		reg := testRegistry(t)
		wf := workflow.New("fan-in", reg, settings)
		trigger := addTrigger(t, wf)
		addNode(t, wf, "sleep", "A", map[string]any{"ms": 100, "value": 1})
		addNode(t, wf, "sleep", "B", map[string]any{"ms": 100, "value": 2})
		addNode(t, wf, "sum", "C", nil)
		require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
		require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "B", node.PortMain))
		require.NoError(t, wf.LinkNodes("A", node.PortMain, "C", "in1"))
		require.NoError(t, wf.LinkNodes("B", node.PortMain, "C", "in2"))
		return wf, trigger
	}

	t.Run("parallel", func(t *testing.T) {
		wf, trigger := build(workflow.Settings{EnableParallelExecution: true, MaxParallelExecutions: 0})
		require.NoError(t, trigger.Fire(firedPayload(0)))

		start := time.Now()
		run, err := New().Execute(context.Background(), wf, "trigger")
		elapsed := time.Since(start)
		require.NoError(t, err)

		assert.Less(t, elapsed, 180*time.Millisecond, "A and B must overlap")
		cOut, _ := run.State.Output("C")
		assert.Equal(t, item.Record{"sum": 3}, cOut[node.PortMain].At(0).JSON)
	})

	t.Run("capped to one", func(t *testing.T) {
		wf, trigger := build(workflow.Settings{EnableParallelExecution: false})
		require.NoError(t, trigger.Fire(firedPayload(0)))

		start := time.Now()
		run, err := New().Execute(context.Background(), wf, "trigger")
		elapsed := time.Since(start)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond, "A and B must serialize")
		cOut, _ := run.State.Output("C")
		assert.Equal(t, item.Record{"sum": 3}, cOut[node.PortMain].At(0).JSON)
	})
}

func TestCycleRejected(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("cyclic", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))
	require.NoError(t, wf.LinkNodes("B", node.PortError, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	_, err := New().Execute(context.Background(), wf, "trigger")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCycle))

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	require.NotEmpty(t, engineErr.Cycles)
	cycle := engineErr.Cycles[0]
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.ElementsMatch(t, []string{"A", "B"}, cycle[:len(cycle)-1])

	assert.Equal(t, int32(0), runsOf(t, wf, "A"), "no node runs when the graph is cyclic")
	assert.Equal(t, int32(0), runsOf(t, wf, "B"))
}

func TestRetrySucceeds(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("retry", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "flaky", "A", map[string]any{"succeedOn": 3})
	a.Retry = node.Retry{MaxTries: 3, WaitMs: 10}
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, run.Status)
	assert.Equal(t, node.StateCompleted, a.State())
	assert.Equal(t, int32(3), runsOf(t, wf, "A"))

	st, ok := run.State.Status("A")
	require.True(t, ok)
	assert.Equal(t, 3, st.Attempts)
}

func TestRetryBound(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("retry-bound", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "flaky", "A", map[string]any{"succeedOn": 5})
	a.Retry = node.Retry{MaxTries: 2, WaitMs: 1}
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNodeFailure))
	assert.Equal(t, workflow.StatusFailed, run.Status)
	assert.Equal(t, node.StateFailed, a.State())
	assert.Equal(t, int32(2), runsOf(t, wf, "A"), "a node executes at most maxTries times per run")
}

func TestContinueOnFail(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("tolerant", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "broken", "A", nil)
	a.ContinueOnFail = true
	b := addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, run.Status)
	assert.Equal(t, node.StateFailed, a.State())
	assert.Equal(t, node.StateCompleted, b.State())

	// The failure travels on the error port, not the primary one.
	aOut, ok := run.State.Output("A")
	require.True(t, ok)
	assert.Equal(t, 0, aOut[node.PortMain].Len())
	require.Equal(t, 1, aOut[node.PortError].Len())
	assert.Equal(t, "always broken", aOut[node.PortError].At(0).JSON["error"])

	bOut, _ := run.State.Output("B")
	assert.Equal(t, 0, bOut[node.PortMain].Len(), "B sees empty input from A's primary port")
}

func TestContinueOnFailErrorPortWiring(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("error-route", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "broken", "A", nil)
	a.ContinueOnFail = true
	addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortError, "B", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	bOut, _ := run.State.Output("B")
	require.Equal(t, 1, bOut[node.PortMain].Len())
	assert.Equal(t, "always broken", bOut[node.PortMain].At(0).JSON["error"])
	assert.Equal(t, "A", bOut[node.PortMain].At(0).JSON["node"])
}

func TestFailurePropagation(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("failing", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "broken", "A", nil)
	addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNodeFailure))
	assert.Equal(t, workflow.StatusFailed, run.Status)
	assert.Equal(t, workflow.StatusFailed, wf.Status())
	assert.Equal(t, int32(0), runsOf(t, wf, "B"), "pending levels are cancelled")
}

func TestDisabledNodeSuppressesOutput(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("disabled", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	a := addNode(t, wf, "pass", "A", nil)
	a.Disabled = true
	addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, run.Status)
	assert.Equal(t, int32(0), runsOf(t, wf, "A"))
	assert.Equal(t, int32(1), runsOf(t, wf, "B"))

	st, ok := run.State.Status("A")
	require.True(t, ok)
	assert.True(t, st.Skipped)

	bOut, _ := run.State.Output("B")
	assert.Equal(t, 0, bOut[node.PortMain].Len(), "a disabled producer contributes no items")
}

func TestIsolationAcrossRuns(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("isolated", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	addNode(t, wf, "pass", "B", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "B", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(7)))

	eng := New()
	run1, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)
	bOut1, ok := run1.State.Output("B")
	require.True(t, ok)

	// The trigger keeps its state and output between runs.
	assert.Equal(t, node.StateCompleted, trigger.State())
	triggerOut, ok := trigger.Result(node.PortMain)
	require.True(t, ok)
	assert.Equal(t, item.Record{"n": 7}, triggerOut.At(0).JSON)

	run2, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)
	bOut2, ok := run2.State.Output("B")
	require.True(t, ok)

	assert.Equal(t, bOut1, bOut2, "regular node outputs are identical run to run")
	assert.Equal(t, int32(2), runsOf(t, wf, "B"), "node executed once per run, no carry-over")
}

func TestTriggerCursorAdvancesAcrossRuns(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("cursor", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))

	eng := New()

	require.NoError(t, trigger.Fire(firedPayload(1)))
	run1, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)
	// Runs of one workflow share a state manager that the next run clears,
	// so run 1's output is read before run 2 starts.
	aOut1, _ := run1.State.Output("A")

	require.NoError(t, trigger.Fire(firedPayload(2)))
	run2, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	aOut2, _ := run2.State.Output("A")
	assert.NotEqual(t, aOut1[node.PortMain].At(0).JSON, aOut2[node.PortMain].At(0).JSON,
		"an advancing trigger produces different run inputs")
}

func TestExecutePreconditions(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("pre", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	eng := New()

	_, err := eng.Execute(context.Background(), wf, "ghost")
	assert.True(t, IsKind(err, KindValidation), "unknown trigger")

	_, err = eng.Execute(context.Background(), wf, "trigger")
	assert.True(t, IsKind(err, KindPrecondition), "trigger has not fired")

	require.NoError(t, trigger.Fire(firedPayload(1)))
	require.NoError(t, wf.BeginRun())
	_, err = eng.Execute(context.Background(), wf, "trigger")
	assert.True(t, IsKind(err, KindPrecondition), "workflow already running")
	wf.EndRun(workflow.StatusIdle)
}

func TestCancellation(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("cancel", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "sleep", "A", map[string]any{"ms": 500, "value": 1})
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	run, err := New().Execute(ctx, wf, "trigger")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCancelled))
	assert.Equal(t, workflow.StatusFailed, run.Status)
}

func TestFanInConcatenatesInLinkOrder(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("concat", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "sleep", "A", map[string]any{"ms": 1, "value": 1})
	addNode(t, wf, "sleep", "B", map[string]any{"ms": 1, "value": 2})
	addNode(t, wf, "pass", "C", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "B", node.PortMain))
	require.NoError(t, wf.LinkNodes("A", node.PortMain, "C", node.PortMain))
	require.NoError(t, wf.LinkNodes("B", node.PortMain, "C", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(0)))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	cOut, _ := run.State.Output("C")
	require.Equal(t, 2, cOut[node.PortMain].Len())
	assert.False(t, cOut[node.PortMain].IsSingle(),
		"two incoming links always read as an array")
	assert.Equal(t, item.Record{"value": 1}, cOut[node.PortMain].At(0).JSON)
	assert.Equal(t, item.Record{"value": 2}, cOut[node.PortMain].At(1).JSON)
}

func TestDefaultPairingAssigned(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("paired", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(node.Output{node.PortMain: item.Collection([]item.Item{
		item.NewItem(item.Record{"i": 0}),
		item.NewItem(item.Record{"i": 1}),
	})}))

	run, err := New().Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	aOut, _ := run.State.Output("A")
	require.Equal(t, 2, aOut[node.PortMain].Len())
	for i := 0; i < aOut[node.PortMain].Len(); i++ {
		require.NotNil(t, aOut[node.PortMain].At(i).PairedItem)
		assert.Equal(t, i, aOut[node.PortMain].At(i).PairedItem.SourceIndex)
	}
}

func TestRunStateClearedEachRun(t *testing.T) {
	reg := testRegistry(t)
	wf := workflow.New("cleared", reg, workflow.Settings{})
	trigger := addTrigger(t, wf)
	addNode(t, wf, "pass", "A", nil)
	require.NoError(t, wf.LinkNodes("trigger", node.PortMain, "A", node.PortMain))
	require.NoError(t, trigger.Fire(firedPayload(1)))

	eng := New()
	_, err := eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)

	mgr := eng.RunState(wf.ID)
	mgr.Clear()
	_, ok := mgr.Output("A")
	assert.False(t, ok)

	_, err = eng.Execute(context.Background(), wf, "trigger")
	require.NoError(t, err)
	_, ok = mgr.Output("A")
	assert.True(t, ok)
}
