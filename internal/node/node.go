// Package node provides the workflow node base: per-node state machine,
// ports, retry policy, and the node-type registry.
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/item"
)

// State is the lifecycle state of a node.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// validTransitions holds the only permitted state changes. Setup never
// transitions; only Run and Reset drive the machine.
var validTransitions = map[State][]State{
	StateIdle:      {StateRunning},
	StateRunning:   {StateCompleted, StateFailed},
	StateCompleted: {StateIdle},
	StateFailed:    {StateIdle},
}

func transitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LinkType tags how a port connects to its peers.
type LinkType string

// LinkStandard is the only defined link type.
const LinkStandard LinkType = "standard"

// Port is a named, typed connection point on one side of a node.
type Port struct {
	Name     string   `json:"name"`
	DataType string   `json:"dataType"`
	LinkType LinkType `json:"linkType"`
}

// Retry configures re-execution of a failed node within a single run.
type Retry struct {
	MaxTries int `json:"maxTries"`
	WaitMs   int `json:"waitMs"`
}

// Position is the node placement on a canvas; carried for export only.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Failure captures why a node ended up in StateFailed.
type Failure struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// Node is a unit of computation in a workflow. The concrete behavior comes
// from the attached Processor; Node itself owns identity, ports, config, and
// the state machine.
type Node struct {
	ID             string
	Name           string
	Type           string
	Version        string
	Position       Position
	Disabled       bool
	Retry          Retry
	ContinueOnFail bool
	Annotation     string

	inputs    []Port
	outputs   []Port
	isTrigger bool
	processor Processor
	validator ConfigValidator

	mu         sync.Mutex
	config     map[string]any
	state      State
	resultData Output
	errorData  *Failure
}

// ConfigValidator checks a config map against a node type's declared
// properties. Injected at construction; see the platform validate package.
type ConfigValidator interface {
	Config(props []Property, config map[string]any) error
}

func newNode(name string, proc Processor, v ConfigValidator) (*Node, error) {
	def := proc.Definition()
	if err := checkPorts(def.Inputs); err != nil {
		return nil, fmt.Errorf("node type %q inputs: %w", def.Type, err)
	}
	if err := checkPorts(def.Outputs); err != nil {
		return nil, fmt.Errorf("node type %q outputs: %w", def.Type, err)
	}
	return &Node{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      def.Type,
		Version:   def.Version,
		inputs:    append([]Port(nil), def.Inputs...),
		outputs:   append([]Port(nil), def.Outputs...),
		isTrigger: def.IsTrigger,
		processor: proc,
		validator: v,
		state:     StateIdle,
		Retry:     Retry{MaxTries: 1},
	}, nil
}

func checkPorts(ports []Port) error {
	seen := make(map[string]struct{}, len(ports))
	for _, p := range ports {
		if p.Name == "" {
			return fmt.Errorf("port with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate port %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// IsTrigger reports whether this node initiates runs. Immutable after
// construction; set by the node type's definition.
func (n *Node) IsTrigger() bool { return n.isTrigger }

// Inputs returns the declared input ports.
func (n *Node) Inputs() []Port { return n.inputs }

// Outputs returns the declared output ports.
func (n *Node) Outputs() []Port { return n.outputs }

// HasInput reports whether an input port with the given name exists.
func (n *Node) HasInput(name string) bool { return hasPort(n.inputs, name) }

// HasOutput reports whether an output port with the given name exists.
func (n *Node) HasOutput(name string) bool { return hasPort(n.outputs, name) }

func hasPort(ports []Port, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Processor returns the node's processor.
func (n *Node) Processor() Processor { return n.processor }

// Source returns the trigger's event source, if the processor owns one.
func (n *Node) Source() (TriggerSource, bool) {
	src, ok := n.processor.(TriggerSource)
	return src, ok
}

// Setup validates and stores the configuration. It never changes the node
// state; a setup failure is a fatal precondition for execution.
func (n *Node) Setup(config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}
	if n.validator != nil {
		if err := n.validator.Config(n.processor.Definition().Properties, config); err != nil {
			return fmt.Errorf("node %q config: %w", n.Name, err)
		}
	}
	if err := n.processor.Validate(config); err != nil {
		return fmt.Errorf("node %q config: %w", n.Name, err)
	}
	n.mu.Lock()
	n.config = config
	n.mu.Unlock()
	return nil
}

// Config returns the stored configuration.
func (n *Node) Config() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.config
}

// State returns the current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Err returns the recorded failure, if any.
func (n *Node) Err() *Failure {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.errorData
}

// Result returns the node's output on the named port.
func (n *Node) Result(port string) (item.PortValue, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resultData == nil {
		return item.Empty(), false
	}
	v, ok := n.resultData[port]
	return v, ok
}

// ResultData returns the full output map of the last run.
func (n *Node) ResultData() Output {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resultData
}

func (n *Node) transition(to State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transitionLocked(to)
}

func (n *Node) transitionLocked(to State) error {
	if !transitionAllowed(n.state, to) {
		return fmt.Errorf("node %q: invalid transition %s -> %s", n.Name, n.state, to)
	}
	n.state = to
	return nil
}

// Run executes the processor once, driving the state machine: Idle->Running
// on entry, Running->Completed or Running->Failed on return. The returned
// error mirrors errorData when the processor failed.
func (n *Node) Run(ctx context.Context, pc *ProcessContext) (Output, error) {
	if err := n.transition(StateRunning); err != nil {
		return nil, err
	}
	if pc == nil {
		pc = &ProcessContext{}
	}
	if pc.Log == nil {
		pc.Log = NopLogger{}
	}
	pc.Config = n.Config()

	out, err := n.runProcessor(ctx, pc)

	n.mu.Lock()
	defer n.mu.Unlock()
	if err != nil {
		n.errorData = &Failure{Message: err.Error()}
		if cause := ctx.Err(); cause != nil {
			n.errorData.Cause = cause.Error()
		}
		if terr := n.transitionLocked(StateFailed); terr != nil {
			return nil, terr
		}
		return nil, err
	}
	if out == nil {
		out = Output{}
	}
	n.resultData = out
	if terr := n.transitionLocked(StateCompleted); terr != nil {
		return nil, terr
	}
	return out, nil
}

func (n *Node) runProcessor(ctx context.Context, pc *ProcessContext) (out Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("process panic: %v", r)
		}
	}()
	return n.processor.Process(ctx, pc)
}

// Reset returns the node to Idle and clears result and error data. Config is
// preserved. Resetting an already idle node is a no-op.
func (n *Node) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateRunning {
		// A running node cannot be reset; the engine only resets between runs.
		return
	}
	n.state = StateIdle
	n.resultData = nil
	n.errorData = nil
}

// Fire records a trigger's own output and moves it to Completed. Only valid
// on trigger nodes; this is the trigger's fire path, not engine scheduling.
func (n *Node) Fire(out Output) error {
	if !n.isTrigger {
		return fmt.Errorf("node %q is not a trigger", n.Name)
	}
	if out == nil {
		out = Output{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateRunning {
		return fmt.Errorf("trigger %q is running", n.Name)
	}
	n.state = StateIdle
	n.errorData = nil
	if err := n.transitionLocked(StateRunning); err != nil {
		return err
	}
	n.resultData = out
	return n.transitionLocked(StateCompleted)
}
