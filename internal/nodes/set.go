package nodes

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeSet is the registry key of the set node.
const TypeSet = "set"

// Set assigns static fields onto every input item. With keepOnlySet the
// input record is replaced instead of merged. Lineage is preserved item by
// item.
type Set struct{}

// NewSet creates a set processor.
func NewSet() *Set {
	return &Set{}
}

// Definition returns the node type description.
func (n *Set) Definition() node.Definition {
	return node.Definition{
		Type:        TypeSet,
		Name:        "Set",
		Description: "Assign fields on every item",
		Category:    "core",
		Version:     "1.0.0",
		Inputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "fields", Type: validate.PropertyJSON, Required: true, Description: "Fields to assign"},
			{Name: "keepOnlySet", Type: validate.PropertyBoolean, Default: false, Description: "Drop all other fields"},
		},
	}
}

// Validate accepts any declared configuration.
func (n *Set) Validate(config map[string]any) error {
	return nil
}

// Process applies the configured fields to each item. A set node with no
// input still emits one item carrying the fields, so it can seed constants.
func (n *Set) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	fields := getMapConfig(pc.Config, "fields")
	keepOnly := getBoolConfig(pc.Config, "keepOnlySet", false)

	input := pc.InputItems(node.PortMain)
	if len(input) == 0 {
		record := item.Record{}
		for k, v := range fields {
			record[k] = v
		}
		return mainOutput([]item.Item{item.NewItem(record)}), nil
	}

	out := make([]item.Item, 0, len(input))
	for i, it := range input {
		record := item.Record{}
		if !keepOnly {
			for k, v := range it.JSON {
				record[k] = v
			}
		}
		for k, v := range fields {
			record[k] = v
		}
		next := item.Item{JSON: record, Binary: it.Binary}
		next.PairedItem = &item.Source{SourceIndex: i, InputPort: 0}
		out = append(out, next)
	}
	return mainOutput(out), nil
}
