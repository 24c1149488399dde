// Package workflow provides the workflow aggregate: nodes, triggers, links,
// and the derived adjacency indices the engine reads.
package workflow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/flowgrid/flowgrid/internal/node"
)

// Status is the run state of a workflow.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Settings controls execution behavior.
type Settings struct {
	// EnableParallelExecution allows nodes of the same dependency level to
	// run concurrently. When false the level structure is still enforced but
	// nodes run one at a time.
	EnableParallelExecution bool `json:"enableParallelExecution"`
	// MaxParallelExecutions caps concurrent node executions. 0 = unlimited.
	MaxParallelExecutions int `json:"maxParallelExecutions"`
}

// Link is a directed connection from an output port to an input port. The
// flat link list is authoritative; the per-node indices are derived.
type Link struct {
	SourceNode string `json:"sourceNode"`
	SourcePort string `json:"sourcePort"`
	TargetNode string `json:"targetNode"`
	TargetPort string `json:"targetPort"`
}

// Workflow holds nodes and triggers in separate maps, the link list, and the
// two derived adjacency indices. Structural mutation is rejected while a run
// is in progress.
type Workflow struct {
	ID         string
	Name       string
	Settings   Settings
	StaticData map[string]any

	mu       sync.RWMutex
	status   Status
	nodes    map[string]*node.Node
	triggers map[string]*node.Node
	links    []Link
	bySource map[string]map[string][]Link
	byTarget map[string]map[string][]Link
	registry *node.Registry
}

// New creates an empty workflow bound to a node-type registry.
func New(name string, reg *node.Registry, settings Settings) *Workflow {
	return &Workflow{
		ID:       uuid.New().String(),
		Name:     name,
		Settings: settings,
		status:   StatusIdle,
		nodes:    make(map[string]*node.Node),
		triggers: make(map[string]*node.Node),
		bySource: make(map[string]map[string][]Link),
		byTarget: make(map[string]map[string][]Link),
		registry: reg,
	}
}

// Registry returns the node-type registry this workflow resolves against.
func (w *Workflow) Registry() *node.Registry { return w.registry }

// Status returns the workflow run state.
func (w *Workflow) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// BeginRun moves the workflow into Running. A workflow already running
// rejects the call; terminal states decay to a fresh run.
func (w *Workflow) BeginRun() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == StatusRunning {
		return fmt.Errorf("workflow %q is already running", w.Name)
	}
	w.status = StatusRunning
	return nil
}

// EndRun records the terminal status of the run.
func (w *Workflow) EndRun(s Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = s
}

func (w *Workflow) hasName(name string) bool {
	_, inNodes := w.nodes[name]
	_, inTriggers := w.triggers[name]
	return inNodes || inTriggers
}

func (w *Workflow) guardMutable() error {
	if w.status == StatusRunning {
		return fmt.Errorf("workflow %q: structural mutation during execution", w.Name)
	}
	return nil
}

// AddNode adds a regular node. Trigger nodes, unregistered node types, and
// duplicate names are rejected.
func (w *Workflow) AddNode(n *node.Node) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guardMutable(); err != nil {
		return err
	}
	if n.IsTrigger() {
		return fmt.Errorf("node %q is a trigger; use AddTriggerNode", n.Name)
	}
	return w.add(w.nodes, n)
}

// AddTriggerNode adds a trigger node; non-triggers are rejected.
func (w *Workflow) AddTriggerNode(t *node.Node) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guardMutable(); err != nil {
		return err
	}
	if !t.IsTrigger() {
		return fmt.Errorf("node %q is not a trigger; use AddNode", t.Name)
	}
	return w.add(w.triggers, t)
}

func (w *Workflow) add(dst map[string]*node.Node, n *node.Node) error {
	if w.registry == nil || !w.registry.Has(n.Type) {
		return fmt.Errorf("node type %q not registered", n.Type)
	}
	if w.hasName(n.Name) {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	dst[n.Name] = n
	return nil
}

// RemoveNode removes the named node from whichever map holds it, together
// with every link referencing it.
func (w *Workflow) RemoveNode(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guardMutable(); err != nil {
		return err
	}
	if !w.hasName(name) {
		return fmt.Errorf("node %q not found", name)
	}
	delete(w.nodes, name)
	delete(w.triggers, name)

	kept := w.links[:0]
	for _, l := range w.links {
		if l.SourceNode != name && l.TargetNode != name {
			kept = append(kept, l)
		}
	}
	w.links = kept
	w.reindex()
	return nil
}

// GetNode returns the named node, searching both maps.
func (w *Workflow) GetNode(name string) (*node.Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n, ok := w.nodes[name]; ok {
		return n, true
	}
	n, ok := w.triggers[name]
	return n, ok
}

// GetTrigger returns the named trigger node.
func (w *Workflow) GetTrigger(name string) (*node.Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.triggers[name]
	return t, ok
}

// LinkNodes connects an output port to an input port. Both endpoints must
// exist and expose the named ports. Relinking the same 4-tuple is a no-op.
func (w *Workflow) LinkNodes(src, srcPort, tgt, tgtPort string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.guardMutable(); err != nil {
		return err
	}
	sn, ok := w.lookup(src)
	if !ok {
		return fmt.Errorf("source node %q not found", src)
	}
	tn, ok := w.lookup(tgt)
	if !ok {
		return fmt.Errorf("target node %q not found", tgt)
	}
	if !sn.HasOutput(srcPort) {
		return fmt.Errorf("node %q has no output port %q", src, srcPort)
	}
	if !tn.HasInput(tgtPort) {
		return fmt.Errorf("node %q has no input port %q", tgt, tgtPort)
	}
	l := Link{SourceNode: src, SourcePort: srcPort, TargetNode: tgt, TargetPort: tgtPort}
	for _, existing := range w.links {
		if existing == l {
			return nil
		}
	}
	w.links = append(w.links, l)
	w.index(l)
	return nil
}

func (w *Workflow) lookup(name string) (*node.Node, bool) {
	if n, ok := w.nodes[name]; ok {
		return n, true
	}
	n, ok := w.triggers[name]
	return n, ok
}

func (w *Workflow) index(l Link) {
	if w.bySource[l.SourceNode] == nil {
		w.bySource[l.SourceNode] = make(map[string][]Link)
	}
	w.bySource[l.SourceNode][l.SourcePort] = append(w.bySource[l.SourceNode][l.SourcePort], l)
	if w.byTarget[l.TargetNode] == nil {
		w.byTarget[l.TargetNode] = make(map[string][]Link)
	}
	w.byTarget[l.TargetNode][l.TargetPort] = append(w.byTarget[l.TargetNode][l.TargetPort], l)
}

func (w *Workflow) reindex() {
	w.bySource = make(map[string]map[string][]Link)
	w.byTarget = make(map[string]map[string][]Link)
	for _, l := range w.links {
		w.index(l)
	}
}

// Links returns a copy of the flat link list.
func (w *Workflow) Links() []Link {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Link(nil), w.links...)
}

// LinksByTarget returns the incoming links of a node, keyed by input port,
// in link order.
func (w *Workflow) LinksByTarget(name string) map[string][]Link {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]Link, len(w.byTarget[name]))
	for port, links := range w.byTarget[name] {
		out[port] = append([]Link(nil), links...)
	}
	return out
}

// LinksBySource returns the outgoing links of a node, keyed by output port.
func (w *Workflow) LinksBySource(name string) map[string][]Link {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]Link, len(w.bySource[name]))
	for port, links := range w.bySource[name] {
		out[port] = append([]Link(nil), links...)
	}
	return out
}

// Nodes returns the regular nodes sorted by name.
func (w *Workflow) Nodes() []*node.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sorted(w.nodes)
}

// Triggers returns the trigger nodes sorted by name.
func (w *Workflow) Triggers() []*node.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sorted(w.triggers)
}

// NodeNames returns the names of all nodes, regular and trigger, sorted.
func (w *Workflow) NodeNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.nodes)+len(w.triggers))
	for name := range w.nodes {
		names = append(names, name)
	}
	for name := range w.triggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTriggerName reports whether the name belongs to the trigger map.
func (w *Workflow) IsTriggerName(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.triggers[name]
	return ok
}

func sorted(m map[string]*node.Node) []*node.Node {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*node.Node, 0, len(names))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}
