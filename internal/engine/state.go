package engine

import (
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/internal/node"
)

// NodeStatus is the per-run snapshot of one node.
type NodeStatus struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	State      node.State    `json:"state"`
	Attempts   int           `json:"attempts"`
	Skipped    bool          `json:"skipped"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	FinishedAt time.Time     `json:"finishedAt,omitempty"`
	Error      *node.Failure `json:"error,omitempty"`
}

// Transition is one entry in the run's diagnostic log.
type Transition struct {
	Node string     `json:"node"`
	To   node.State `json:"to"`
	At   time.Time  `json:"at"`
}

// StateManager holds per-run ephemeral state keyed by node name: latest
// output arrays per port, status snapshots, and run-level diagnostics. It is
// fully cleared at the start of every run; nothing written by run N is
// observable in run N+1.
type StateManager struct {
	mu          sync.RWMutex
	outputs     map[string]node.Output
	statuses    map[string]*NodeStatus
	transitions []Transition
}

// NewStateManager creates an empty manager.
func NewStateManager() *StateManager {
	m := &StateManager{}
	m.Clear()
	return m
}

// Clear empties every map. Called by the engine before each run.
func (m *StateManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = make(map[string]node.Output)
	m.statuses = make(map[string]*NodeStatus)
	m.transitions = nil
}

// SetOutput records a node's output for downstream consumption. Writes are
// per-node-name and never overlap within a run.
func (m *StateManager) SetOutput(name string, out node.Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[name] = out
}

// Output returns the recorded output of a node.
func (m *StateManager) Output(name string) (node.Output, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.outputs[name]
	return out, ok
}

// SetStatus stores a node's status snapshot and appends the transition to
// the run log.
func (m *StateManager) SetStatus(st NodeStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[st.Name] = &st
	m.transitions = append(m.transitions, Transition{Node: st.Name, To: st.State, At: time.Now()})
}

// Status returns a node's status snapshot.
func (m *StateManager) Status(name string) (NodeStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.statuses[name]
	if !ok {
		return NodeStatus{}, false
	}
	return *st, true
}

// Statuses returns a copy of every node status.
func (m *StateManager) Statuses() map[string]NodeStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]NodeStatus, len(m.statuses))
	for name, st := range m.statuses {
		out[name] = *st
	}
	return out
}

// Transitions returns the run's status transition log in order.
func (m *StateManager) Transitions() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Transition(nil), m.transitions...)
}
