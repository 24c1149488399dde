package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowgrid/flowgrid/internal/platform/validate"
)

// Factory constructs a fresh processor instance for one node.
type Factory func() Processor

// Registry maps node type keys to processor factories. It is constructed at
// startup and injected wherever node types are resolved; there is no global
// instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	validator ConfigValidator
}

// NewRegistry creates a registry. The validator is attached to every node
// built through the registry.
func NewRegistry(v ConfigValidator) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		validator: v,
	}
}

// Register adds a node type. The factory's definition must agree with the
// key; duplicate registration is an error.
func (r *Registry) Register(nodeType string, f Factory) error {
	if !validate.NodeTypeRegex.MatchString(nodeType) {
		return fmt.Errorf("node type %q is not lowercase kebab-case", nodeType)
	}
	def := f().Definition()
	if def.Type != nodeType {
		return fmt.Errorf("node type mismatch: registering %q but definition says %q", nodeType, def.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[nodeType]; exists {
		return fmt.Errorf("node type %q already registered", nodeType)
	}
	r.factories[nodeType] = f
	return nil
}

// Has reports whether the node type is registered.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[nodeType]
	return ok
}

// Get returns the factory for a node type.
func (r *Registry) Get(nodeType string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}
	return f, nil
}

// New builds a node of the given type with a fresh processor instance.
func (r *Registry) New(nodeType, name string) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("node name cannot be empty")
	}
	f, err := r.Get(nodeType)
	if err != nil {
		return nil, err
	}
	return newNode(name, f(), r.validator)
}

// List returns the definitions of all registered node types, sorted by key.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.factories))
	for _, f := range r.factories {
		defs = append(defs, f().Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}
