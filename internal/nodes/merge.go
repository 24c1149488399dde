package nodes

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
)

// TypeMerge is the registry key of the merge node.
const TypeMerge = "merge"

// Merge concatenates the items of its two input ports onto one output,
// annotating each item with the input port it came from.
type Merge struct{}

// NewMerge creates a merge processor.
func NewMerge() *Merge {
	return &Merge{}
}

// PortInput1 and PortInput2 are the merge node's fan-in ports.
const (
	PortInput1 = "in1"
	PortInput2 = "in2"
)

// Definition returns the node type description.
func (n *Merge) Definition() node.Definition {
	return node.Definition{
		Type:        TypeMerge,
		Name:        "Merge",
		Description: "Concatenate two input streams",
		Category:    "core",
		Version:     "1.0.0",
		Inputs: []node.Port{
			{Name: PortInput1, DataType: "any", LinkType: node.LinkStandard},
			{Name: PortInput2, DataType: "any", LinkType: node.LinkStandard},
		},
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
	}
}

// Validate accepts any declared configuration.
func (n *Merge) Validate(config map[string]any) error {
	return nil
}

// Process emits in1's items followed by in2's.
func (n *Merge) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	var out []item.Item
	for portIndex, port := range []string{PortInput1, PortInput2} {
		for i, it := range pc.InputItems(port) {
			it.PairedItem = &item.Source{SourceIndex: i, InputPort: portIndex}
			out = append(out, it)
		}
	}
	return mainOutput(out), nil
}
