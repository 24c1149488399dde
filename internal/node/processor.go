package node

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// Property re-exports the validator's property declaration for node types.
type Property = validate.Property

// PortMain is the conventional primary data port.
const PortMain = "main"

// PortError is the logical port carrying error records when a node with
// continue-on-fail fails. Error records never mix into the primary port.
const PortError = "error"

// Output maps output port names to produced data.
type Output map[string]item.PortValue

// Input maps input port names to assembled upstream data.
type Input map[string]item.PortValue

// Definition describes a node type: its registry key, display metadata,
// ports, and configuration properties.
type Definition struct {
	Type        string
	Name        string
	Description string
	Category    string
	Version     string
	IsTrigger   bool
	Inputs      []Port
	Outputs     []Port
	Properties  []Property
}

// ProcessContext is handed to a processor for one execution.
type ProcessContext struct {
	// Input holds the assembled data per input port.
	Input Input
	// Config is the node's validated configuration.
	Config map[string]any
	// State is arbitrary per-run scratch shared by nodes in the same run.
	State map[string]any
	// Log receives processor diagnostics; never nil.
	Log Logger
}

// InputItems returns the normalized items on the named input port.
func (pc *ProcessContext) InputItems(port string) []item.Item {
	if pc == nil || pc.Input == nil {
		return nil
	}
	return pc.Input[port].Items()
}

// Logger is the narrow logging surface handed to processors. The platform
// logger satisfies it.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Processor supplies the node-type-specific behavior. State, ports, retry,
// and reset live on Node.
type Processor interface {
	// Definition returns the static description of this node type.
	Definition() Definition
	// Validate checks type-specific configuration constraints beyond the
	// declared property schema.
	Validate(config map[string]any) error
	// Process executes the node.
	Process(ctx context.Context, pc *ProcessContext) (Output, error)
}

// FireFunc delivers a trigger payload; the bound engine starts a run.
type FireFunc func(out Output) error

// TriggerSource is implemented by trigger processors that own an external
// event source (schedule tick, webhook delivery). Start must return promptly
// and fire from its own goroutines until Stop or ctx cancellation.
type TriggerSource interface {
	Start(ctx context.Context, fire FireFunc) error
	Stop(ctx context.Context) error
}
