package engine

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/workflow"
)

// Binding connects one trigger node to the engine. The trigger's fire path
// records its own output, moves it to Completed, and starts a run; the
// engine's contract with the trigger stays narrow: find it by name, read its
// output, never reset it.
type Binding struct {
	engine *Engine
	wf     *workflow.Workflow
	name   string
}

// Bind creates a binding for the named trigger.
func (e *Engine) Bind(wf *workflow.Workflow, triggerName string) (*Binding, error) {
	if _, ok := wf.GetTrigger(triggerName); !ok {
		return nil, validationError("trigger %q not found", triggerName)
	}
	return &Binding{engine: e, wf: wf, name: triggerName}, nil
}

// TriggerName returns the bound trigger's name.
func (b *Binding) TriggerName() string { return b.name }

// Fire delivers a payload through the trigger and executes the workflow. A
// nil payload runs the trigger's own processor to produce one; this is the
// trigger's fire path, distinct from the engine's reset discipline.
func (b *Binding) Fire(ctx context.Context, payload node.Output) (*Run, error) {
	t, ok := b.wf.GetTrigger(b.name)
	if !ok {
		return nil, validationError("trigger %q not found", b.name)
	}
	if payload == nil {
		t.Reset()
		if _, err := t.Run(ctx, &node.ProcessContext{Log: b.engine.log}); err != nil {
			return nil, preconditionError("trigger %q: %v", b.name, err)
		}
	} else if err := t.Fire(payload); err != nil {
		return nil, preconditionError("trigger %q: %v", b.name, err)
	}
	return b.engine.Execute(ctx, b.wf, b.name)
}

// Start attaches the trigger's external event source, if it owns one. Each
// event fires the trigger and runs the workflow.
func (b *Binding) Start(ctx context.Context) error {
	t, ok := b.wf.GetTrigger(b.name)
	if !ok {
		return validationError("trigger %q not found", b.name)
	}
	src, ok := t.Source()
	if !ok {
		return validationError("trigger %q has no event source", b.name)
	}
	return src.Start(ctx, func(out node.Output) error {
		_, err := b.Fire(ctx, out)
		return err
	})
}

// Stop detaches the trigger's event source.
func (b *Binding) Stop(ctx context.Context) error {
	t, ok := b.wf.GetTrigger(b.name)
	if !ok {
		return validationError("trigger %q not found", b.name)
	}
	src, ok := t.Source()
	if !ok {
		return nil
	}
	return src.Stop(ctx)
}
