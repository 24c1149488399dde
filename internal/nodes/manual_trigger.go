package nodes

import (
	"context"
	"time"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeManualTrigger is the registry key of the manual trigger.
const TypeManualTrigger = "manual-trigger"

// ManualTrigger starts a run on an explicit Fire call. An optional payload
// record in config is emitted when the caller fires without data.
type ManualTrigger struct{}

// NewManualTrigger creates a manual trigger processor.
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{}
}

// Definition returns the node type description.
func (t *ManualTrigger) Definition() node.Definition {
	return node.Definition{
		Type:        TypeManualTrigger,
		Name:        "Manual Trigger",
		Description: "Start the workflow on demand",
		Category:    "trigger",
		Version:     "1.0.0",
		IsTrigger:   true,
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "payload", Type: validate.PropertyJSON, Description: "Static payload emitted on fire"},
		},
	}
}

// Validate accepts any declared configuration.
func (t *ManualTrigger) Validate(config map[string]any) error {
	return nil
}

// Process builds the trigger output from the configured payload. The fire
// path normally supplies the payload directly; Process covers fires with no
// explicit data.
func (t *ManualTrigger) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	return t.Payload(pc.Config), nil
}

// Payload builds the output emitted when the trigger fires without data.
func (t *ManualTrigger) Payload(config map[string]any) node.Output {
	record := item.Record{"firedAt": time.Now().Format(time.RFC3339)}
	if payload := getMapConfig(config, "payload"); payload != nil {
		record = payload
	}
	return node.Output{node.PortMain: item.Single(item.NewItem(record))}
}
