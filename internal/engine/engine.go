package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/workflow"
)

// Engine executes workflows. One engine serves many workflows; per-run state
// is kept in a StateManager per workflow ID.
type Engine struct {
	metrics *Metrics
	log     node.Logger

	mu     sync.Mutex
	states map[string]*StateManager
}

// Option configures an engine.
type Option func(*Engine)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger handed to node processors.
func WithLogger(l node.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:    node.NopLogger{},
		states: make(map[string]*StateManager),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunState returns the execution-state manager for a workflow, creating it
// on first use.
func (e *Engine) RunState(workflowID string) *StateManager {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.states[workflowID]
	if !ok {
		m = NewStateManager()
		e.states[workflowID] = m
	}
	return m
}

// Run is the result of one workflow execution.
type Run struct {
	ID         string
	WorkflowID string
	Trigger    string
	Status     workflow.Status
	StartedAt  time.Time
	FinishedAt time.Time
	// State is the workflow's execution-state manager on this engine. The
	// next Execute of the same workflow clears and reuses it.
	State *StateManager
	Err   error
}

// Execute runs the workflow from the named trigger. The trigger must already
// be in Completed state (its fire path sets the output the run consumes);
// the workflow must not be running. Regular nodes are reset before the run;
// the trigger is untouched.
func (e *Engine) Execute(ctx context.Context, wf *workflow.Workflow, triggerName string) (*Run, error) {
	prev := wf.Status()
	if err := wf.BeginRun(); err != nil {
		return nil, preconditionError("workflow %q is not idle", wf.Name)
	}

	abort := func(err *Error) (*Run, error) {
		wf.EndRun(prev)
		return nil, err
	}

	trigger, ok := wf.GetTrigger(triggerName)
	if !ok {
		return abort(validationError("trigger %q not found", triggerName))
	}
	if trigger.State() != node.StateCompleted {
		return abort(preconditionError("trigger %q has not fired (state %s)", triggerName, trigger.State()))
	}

	// Isolation: every regular node back to Idle, the run state emptied.
	// Triggers keep their state and output across runs.
	mgr := e.RunState(wf.ID)
	mgr.Clear()
	for _, n := range wf.Nodes() {
		n.Reset()
	}

	analysis, err := Analyze(wf)
	if err != nil {
		cerr, ok := err.(*Error)
		if !ok {
			cerr = internalError("analysis failed: %v", err)
		}
		return abort(cerr)
	}

	// The trigger's last output is the root producer of the run.
	mgr.SetOutput(triggerName, trigger.ResultData())
	mgr.SetStatus(NodeStatus{Name: triggerName, Type: trigger.Type, State: node.StateCompleted})

	run := &Run{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		Trigger:    triggerName,
		StartedAt:  time.Now(),
		State:      mgr,
	}

	failure := e.runLevels(ctx, wf, mgr, analysis.Levels)

	run.FinishedAt = time.Now()
	switch {
	case ctx.Err() != nil:
		run.Status = workflow.StatusFailed
		run.Err = cancelledError(ctx.Err())
	case failure != nil:
		run.Status = workflow.StatusFailed
		run.Err = failure
	default:
		run.Status = workflow.StatusCompleted
	}
	wf.EndRun(run.Status)

	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		e.metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	return run, run.Err
}

// runLevels executes the topological levels in order, nodes within a level
// concurrently up to the parallelism cap. Returns the first fatal failure.
func (e *Engine) runLevels(ctx context.Context, wf *workflow.Workflow, mgr *StateManager, levels [][]string) *Error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failMu sync.Mutex
	var failure *Error
	fail := func(err *Error) {
		failMu.Lock()
		if failure == nil {
			failure = err
			cancel()
		}
		failMu.Unlock()
	}
	failed := func() bool {
		failMu.Lock()
		defer failMu.Unlock()
		return failure != nil
	}

	limit := 1
	if wf.Settings.EnableParallelExecution {
		limit = wf.Settings.MaxParallelExecutions
	}
	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	scratch := make(map[string]any)

	for _, level := range levels {
		if failed() || runCtx.Err() != nil {
			break
		}
		var wg sync.WaitGroup
		for _, name := range level {
			if wf.IsTriggerName(name) {
				// The entry trigger is already seeded; an unfired trigger
				// simply contributes nothing downstream.
				continue
			}
			if failed() || runCtx.Err() != nil {
				break
			}
			n, ok := wf.GetNode(name)
			if !ok {
				fail(internalError("node %q in level plan but not in workflow", name))
				break
			}
			if n.Disabled {
				// Treated as completing instantly with empty output on every
				// port; dependency edges still order the levels.
				mgr.SetOutput(name, emptyOutputs(n))
				mgr.SetStatus(NodeStatus{Name: name, Type: n.Type, State: node.StateIdle, Skipped: true})
				continue
			}
			wg.Add(1)
			go func(n *node.Node) {
				defer wg.Done()
				if sem != nil {
					select {
					case sem <- struct{}{}:
						defer func() { <-sem }()
					case <-runCtx.Done():
						return
					}
				}
				if runCtx.Err() != nil {
					return
				}
				e.runNode(runCtx, wf, mgr, n, scratch, fail)
			}(n)
		}
		wg.Wait()
	}
	return failure
}

// runNode assembles the node's input, executes it under the retry policy,
// and applies the continue-on-fail policy to a final failure.
func (e *Engine) runNode(ctx context.Context, wf *workflow.Workflow, mgr *StateManager, n *node.Node, scratch map[string]any, fail func(*Error)) {
	in := assembleInput(wf, mgr, n)
	maxTries := n.Retry.MaxTries
	if maxTries < 1 {
		maxTries = 1
	}

	started := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxTries; attempt++ {
		attempts = attempt
		pc := &node.ProcessContext{Input: in, State: scratch, Log: e.log}
		out, err := n.Run(ctx, pc)
		if err == nil {
			normalized := make(node.Output, len(out))
			for port, v := range out {
				normalized[port] = v.WithDefaultPairing()
			}
			mgr.SetOutput(n.Name, normalized)
			mgr.SetStatus(NodeStatus{
				Name: n.Name, Type: n.Type, State: node.StateCompleted,
				Attempts: attempts, StartedAt: started, FinishedAt: time.Now(),
			})
			if e.metrics != nil {
				e.metrics.NodeExecutions.WithLabelValues(n.Type, "completed").Inc()
			}
			return
		}
		lastErr = err
		if e.metrics != nil {
			e.metrics.NodeExecutions.WithLabelValues(n.Type, "failed").Inc()
		}
		if attempt == maxTries {
			break
		}
		// Back off, then reset to Idle for the next attempt. Downstream
		// state is untouched by retries.
		select {
		case <-ctx.Done():
			mgr.SetStatus(NodeStatus{
				Name: n.Name, Type: n.Type, State: node.StateFailed,
				Attempts: attempts, StartedAt: started, FinishedAt: time.Now(), Error: n.Err(),
			})
			return
		case <-time.After(time.Duration(n.Retry.WaitMs) * time.Millisecond):
		}
		if e.metrics != nil {
			e.metrics.NodeRetries.Inc()
		}
		n.Reset()
	}

	mgr.SetStatus(NodeStatus{
		Name: n.Name, Type: n.Type, State: node.StateFailed,
		Attempts: attempts, StartedAt: started, FinishedAt: time.Now(), Error: n.Err(),
	})

	if n.ContinueOnFail {
		// The failure travels on the error port; the run goes on.
		errItem := item.NewItem(item.Record{
			"error": lastErr.Error(),
			"node":  n.Name,
		})
		mgr.SetOutput(n.Name, node.Output{
			node.PortError: item.Collection([]item.Item{errItem}).WithDefaultPairing(),
		})
		return
	}
	fail(nodeFailure(n.Name, lastErr))
}

// assembleInput concatenates, for each input port, the producer output
// arrays in link order. The caller-visible single-record shape survives only
// when there is exactly one incoming link and that producer emitted a single
// record on the source port.
func assembleInput(wf *workflow.Workflow, mgr *StateManager, n *node.Node) node.Input {
	in := make(node.Input, len(n.Inputs()))
	byTarget := wf.LinksByTarget(n.Name)
	for _, p := range n.Inputs() {
		links := byTarget[p.Name]
		single := false
		if len(links) == 1 {
			if out, ok := mgr.Output(links[0].SourceNode); ok {
				single = out[links[0].SourcePort].IsSingle()
			}
		}
		var items []item.Item
		for _, l := range links {
			out, ok := mgr.Output(l.SourceNode)
			if !ok {
				continue
			}
			items = append(items, out[l.SourcePort].Items()...)
		}
		if single && len(items) == 1 {
			in[p.Name] = item.Single(items[0])
		} else {
			in[p.Name] = item.Collection(items)
		}
	}
	return in
}

func emptyOutputs(n *node.Node) node.Output {
	out := make(node.Output, len(n.Outputs()))
	for _, p := range n.Outputs() {
		out[p.Name] = item.Empty()
	}
	return out
}
