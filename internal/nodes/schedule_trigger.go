package nodes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeScheduleTrigger is the registry key of the schedule trigger.
const TypeScheduleTrigger = "schedule-trigger"

// ScheduleTrigger fires the workflow on a cron expression or fixed interval.
// The trigger carries its cursor (tick count, last fire time) across runs;
// the engine never resets it.
type ScheduleTrigger struct {
	mu        sync.Mutex
	config    map[string]any
	scheduler *cron.Cron
	ticker    *time.Ticker
	done      chan struct{}
	tickCount int64
	lastFire  time.Time
}

var _ node.TriggerSource = (*ScheduleTrigger)(nil)

// NewScheduleTrigger creates a schedule trigger processor.
func NewScheduleTrigger() *ScheduleTrigger {
	return &ScheduleTrigger{}
}

// Definition returns the node type description.
func (t *ScheduleTrigger) Definition() node.Definition {
	return node.Definition{
		Type:        TypeScheduleTrigger,
		Name:        "Schedule Trigger",
		Description: "Start the workflow on a cron schedule or fixed interval",
		Category:    "trigger",
		Version:     "1.0.0",
		IsTrigger:   true,
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "mode", Type: validate.PropertySelect, Default: "interval", Options: []string{"interval", "cron"}, Description: "Schedule mode"},
			{Name: "intervalSeconds", Type: validate.PropertyNumber, Default: 60, Description: "Interval in seconds (interval mode)"},
			{Name: "cronExpression", Type: validate.PropertyString, Description: "Cron expression (cron mode)"},
		},
	}
}

// Validate checks the schedule settings and retains them for Start.
func (t *ScheduleTrigger) Validate(config map[string]any) error {
	mode := getStringConfig(config, "mode", "interval")
	if mode == "cron" {
		expr := getStringConfig(config, "cronExpression", "")
		if expr == "" {
			return fmt.Errorf("cron expression is required for cron mode")
		}
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	} else if getIntConfig(config, "intervalSeconds", 60) < 1 {
		return fmt.Errorf("interval must be at least 1 second")
	}
	t.mu.Lock()
	t.config = config
	t.mu.Unlock()
	return nil
}

// Process emits the current tick payload; used when the trigger is fired
// manually rather than by its own schedule.
func (t *ScheduleTrigger) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	return t.tick(), nil
}

// tick advances the cursor and builds the fire payload.
func (t *ScheduleTrigger) tick() node.Output {
	t.mu.Lock()
	t.tickCount++
	t.lastFire = time.Now()
	count := t.tickCount
	at := t.lastFire
	t.mu.Unlock()

	return node.Output{node.PortMain: item.Single(item.NewItem(item.Record{
		"timestamp": at.Format(time.RFC3339Nano),
		"tick":      count,
	}))}
}

// Start begins the schedule. Fires continue until Stop or ctx cancellation.
func (t *ScheduleTrigger) Start(ctx context.Context, fire node.FireFunc) error {
	t.mu.Lock()
	config := t.config
	t.mu.Unlock()

	mode := getStringConfig(config, "mode", "interval")
	if mode == "cron" {
		expr := getStringConfig(config, "cronExpression", "")
		c := cron.New()
		if _, err := c.AddFunc(expr, func() { _ = fire(t.tick()) }); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		t.mu.Lock()
		t.scheduler = c
		t.mu.Unlock()
		c.Start()
		return nil
	}

	interval := time.Duration(getIntConfig(config, "intervalSeconds", 60)) * time.Second
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	t.mu.Lock()
	t.ticker = ticker
	t.done = done
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				_ = fire(t.tick())
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop halts the schedule.
func (t *ScheduleTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.scheduler != nil {
		t.scheduler.Stop()
		t.scheduler = nil
	}
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	return nil
}
