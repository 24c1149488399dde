// Package nodes provides the built-in node type implementations.
package nodes

import (
	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
)

func getStringConfig(config map[string]any, key, defaultVal string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getIntConfig(config map[string]any, key string, defaultVal int) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

func getBoolConfig(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

func getMapConfig(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// BuiltinOptions carries process-level defaults into the built-in nodes.
type BuiltinOptions struct {
	// WebhookAddr is the listen address for webhook triggers whose node
	// config sets none.
	WebhookAddr string
}

// RegisterBuiltins registers every built-in node type on the registry.
func RegisterBuiltins(reg *node.Registry, opts BuiltinOptions) error {
	builtins := map[string]node.Factory{
		TypeManualTrigger:   func() node.Processor { return NewManualTrigger() },
		TypeScheduleTrigger: func() node.Processor { return NewScheduleTrigger() },
		TypeWebhookTrigger:  func() node.Processor { return NewWebhookTrigger(opts.WebhookAddr) },
		TypeHTTPRequest:     func() node.Processor { return NewHTTPRequest() },
		TypeJavaScript:      func() node.Processor { return NewJavaScript() },
		TypeSet:             func() node.Processor { return NewSet() },
		TypeMerge:           func() node.Processor { return NewMerge() },
	}
	for nodeType, f := range builtins {
		if err := reg.Register(nodeType, f); err != nil {
			return err
		}
	}
	return nil
}

func mainOutput(items []item.Item) node.Output {
	return node.Output{node.PortMain: item.Collection(items)}
}
