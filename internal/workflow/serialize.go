package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/flowgrid/flowgrid/internal/node"
)

// exportVersion is the format version of the serialized envelope.
const exportVersion = 1

// Envelope is the JSON export format of a workflow.
type Envelope struct {
	Version    int              `json:"version"`
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Nodes      []SerializedNode `json:"nodes"`
	Triggers   []SerializedNode `json:"triggers"`
	Links      []Link           `json:"links"`
	StaticData map[string]any   `json:"staticData,omitempty"`
	Settings   *Settings        `json:"settings,omitempty"`
	MockData   map[string]any   `json:"mockData,omitempty"`
}

// SerializedNode is the wire form of a node.
type SerializedNode struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	NodeType       string         `json:"nodeType"`
	Version        string         `json:"version"`
	Position       node.Position  `json:"position"`
	Config         map[string]any `json:"config"`
	Inputs         []node.Port    `json:"inputs"`
	Outputs        []node.Port    `json:"outputs"`
	IsTrigger      bool           `json:"isTrigger"`
	Disabled       bool           `json:"disabled"`
	Retry          node.Retry     `json:"retry"`
	ContinueOnFail bool           `json:"continueOnFail"`
	Annotation     string         `json:"annotation,omitempty"`
}

// ImportOptions tunes Import behavior.
type ImportOptions struct {
	// AllowMissing skips nodes with unregistered node types instead of
	// failing; links touching a skipped node are dropped.
	AllowMissing bool
	// DefaultSettings is used when the envelope carries no settings block,
	// typically the engine defaults from process configuration. An explicit
	// settings block in the envelope always wins.
	DefaultSettings *Settings
	// DefaultRetryWaitMs fills the wait of a retrying node that sets none.
	DefaultRetryWaitMs int
}

// Export serializes the workflow as JSON.
func (w *Workflow) Export() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	settings := w.Settings
	env := Envelope{
		Version:    exportVersion,
		ID:         w.ID,
		Name:       w.Name,
		Links:      append([]Link(nil), w.links...),
		StaticData: w.StaticData,
		Settings:   &settings,
	}
	for _, n := range sorted(w.nodes) {
		env.Nodes = append(env.Nodes, serializeNode(n))
	}
	for _, t := range sorted(w.triggers) {
		env.Triggers = append(env.Triggers, serializeNode(t))
	}
	return json.MarshalIndent(env, "", "  ")
}

func serializeNode(n *node.Node) SerializedNode {
	config := n.Config()
	if config == nil {
		config = map[string]any{}
	}
	return SerializedNode{
		ID:             n.ID,
		Name:           n.Name,
		NodeType:       n.Type,
		Version:        n.Version,
		Position:       n.Position,
		Config:         config,
		Inputs:         n.Inputs(),
		Outputs:        n.Outputs(),
		IsTrigger:      n.IsTrigger(),
		Disabled:       n.Disabled,
		Retry:          n.Retry,
		ContinueOnFail: n.ContinueOnFail,
		Annotation:     n.Annotation,
	}
}

// Import reconstructs a workflow from its JSON export, resolving node types
// against the registry. Unknown node types fail loudly unless AllowMissing is
// set, in which case those nodes and the links touching them are dropped. A
// link to a node that is absent from the envelope always fails.
func Import(data []byte, reg *node.Registry, opts ImportOptions) (*Workflow, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if env.Version != exportVersion {
		return nil, fmt.Errorf("unsupported workflow format version %d", env.Version)
	}

	var settings Settings
	switch {
	case env.Settings != nil:
		settings = *env.Settings
	case opts.DefaultSettings != nil:
		settings = *opts.DefaultSettings
	}

	w := New(env.Name, reg, settings)
	if env.ID != "" {
		w.ID = env.ID
	}
	w.StaticData = env.StaticData

	skipped := make(map[string]struct{})
	restore := func(sn SerializedNode, trigger bool) error {
		if !reg.Has(sn.NodeType) {
			if opts.AllowMissing {
				skipped[sn.Name] = struct{}{}
				return nil
			}
			return fmt.Errorf("node %q: node type %q not registered", sn.Name, sn.NodeType)
		}
		n, err := reg.New(sn.NodeType, sn.Name)
		if err != nil {
			return err
		}
		if n.IsTrigger() != trigger {
			return fmt.Errorf("node %q: trigger flag does not match node type %q", sn.Name, sn.NodeType)
		}
		if sn.ID != "" {
			n.ID = sn.ID
		}
		n.Position = sn.Position
		n.Disabled = sn.Disabled
		n.ContinueOnFail = sn.ContinueOnFail
		n.Annotation = sn.Annotation
		if sn.Retry.MaxTries > 0 {
			retry := sn.Retry
			if retry.MaxTries > 1 && retry.WaitMs == 0 {
				retry.WaitMs = opts.DefaultRetryWaitMs
			}
			n.Retry = retry
		}
		if err := n.Setup(sn.Config); err != nil {
			return err
		}
		if trigger {
			return w.AddTriggerNode(n)
		}
		return w.AddNode(n)
	}

	for _, sn := range env.Nodes {
		if err := restore(sn, false); err != nil {
			return nil, err
		}
	}
	for _, sn := range env.Triggers {
		if err := restore(sn, true); err != nil {
			return nil, err
		}
	}

	for _, l := range env.Links {
		if _, srcSkipped := skipped[l.SourceNode]; srcSkipped {
			continue
		}
		if _, tgtSkipped := skipped[l.TargetNode]; tgtSkipped {
			continue
		}
		if err := w.LinkNodes(l.SourceNode, l.SourcePort, l.TargetNode, l.TargetPort); err != nil {
			return nil, fmt.Errorf("restore link: %w", err)
		}
	}
	return w, nil
}
