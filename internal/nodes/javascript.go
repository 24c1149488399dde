package nodes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/flowgrid/flowgrid/internal/item"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// TypeJavaScript is the registry key of the javascript node.
const TypeJavaScript = "javascript"

// JavaScript runs user code in a goja sandbox. The script sees the input
// items of the main port as `items` (array of plain records) and returns the
// output: a record, an array of records, or nothing for an empty output.
type JavaScript struct{}

// NewJavaScript creates a javascript processor.
func NewJavaScript() *JavaScript {
	return &JavaScript{}
}

// Definition returns the node type description.
func (n *JavaScript) Definition() node.Definition {
	return node.Definition{
		Type:        TypeJavaScript,
		Name:        "JavaScript",
		Description: "Transform items with a JavaScript snippet",
		Category:    "core",
		Version:     "1.0.0",
		Inputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Outputs: []node.Port{
			{Name: node.PortMain, DataType: "any", LinkType: node.LinkStandard},
		},
		Properties: []node.Property{
			{Name: "code", Type: validate.PropertyCode, Required: true, Description: "Script body; `items` holds the input records"},
			{Name: "timeoutMs", Type: validate.PropertyNumber, Default: 5000, Description: "Script timeout"},
		},
	}
}

// Validate compiles the script.
func (n *JavaScript) Validate(config map[string]any) error {
	code := getStringConfig(config, "code", "")
	if code == "" {
		return fmt.Errorf("code is required")
	}
	if _, err := goja.Compile("node.js", wrapScript(code), false); err != nil {
		return fmt.Errorf("script does not compile: %w", err)
	}
	return nil
}

func wrapScript(code string) string {
	return "(function(items) {\n" + code + "\n})(items)"
}

// Process executes the script against the input items.
func (n *JavaScript) Process(ctx context.Context, pc *node.ProcessContext) (node.Output, error) {
	code := getStringConfig(pc.Config, "code", "")
	timeout := time.Duration(getIntConfig(pc.Config, "timeoutMs", 5000)) * time.Millisecond

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	installHelpers(vm)

	input := pc.InputItems(node.PortMain)
	records := make([]any, len(input))
	for i, it := range input {
		records[i] = map[string]any(it.JSON)
	}
	if err := vm.Set("items", records); err != nil {
		return nil, fmt.Errorf("bind items: %w", err)
	}

	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("script timeout")
	})
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt("cancelled")
	})
	defer stop()

	value, err := vm.RunString(wrapScript(code))
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	out, err := toItems(value)
	if err != nil {
		return nil, err
	}
	// Index-wise lineage when the script maps items one to one.
	if len(out) == len(input) {
		for i := range out {
			out[i].PairedItem = &item.Source{SourceIndex: i, InputPort: 0}
		}
	}
	return mainOutput(out), nil
}

// toItems converts the script return value into output items.
func toItems(v goja.Value) ([]item.Item, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	exported := v.Export()
	switch t := exported.(type) {
	case map[string]any:
		return []item.Item{item.NewItem(t)}, nil
	case []any:
		items := make([]item.Item, 0, len(t))
		for i, e := range t {
			record, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("script result[%d] is not an object", i)
			}
			items = append(items, item.NewItem(record))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("script must return an object or an array of objects, got %T", exported)
	}
}

// installHelpers exposes the small helper surface scripts rely on.
func installHelpers(vm *goja.Runtime) {
	_ = vm.Set("jsonParse", func(s string) (any, error) {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return nil, err
		}
		return parsed, nil
	})
	_ = vm.Set("jsonStringify", func(v any) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	})
	_ = vm.Set("btoa", func(s string) string {
		return base64.StdEncoding.EncodeToString([]byte(s))
	})
	_ = vm.Set("atob", func(s string) (string, error) {
		data, err := base64.StdEncoding.DecodeString(s)
		return string(data), err
	})
}
