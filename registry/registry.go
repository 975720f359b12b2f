// Package registry provides a name-to-factory map (one per Registry value;
// there is no process-wide instance, and each tree.BehaviorTree gets its own
// unless one is passed in with tree.WithRegistry) used by the
// XML loader (and by anything else that needs to construct nodes by name
// rather than by Go type) to build node instances dynamically. Grounded on
// engine.Engine's agent registry: a sync.RWMutex-guarded map with
// Register/Get and a warning, rather than an error, on re-registration.
package registry

import (
	"sync"

	"github.com/xiongwc/abtree/abterr"
	"github.com/xiongwc/abtree/core"
	"github.com/xiongwc/abtree/node"
)

// Factory builds a Node from a name and a set of string-keyed parameters
// parsed from a declarative document (XML attributes, a YAML map). params
// is never nil.
type Factory func(name string, params map[string]string, children []node.Node) (node.Node, error)

// Registry is a concurrency-safe name -> Factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	bus       *core.EventBus
}

// New constructs an empty Registry. bus may be nil; when set, a
// "registry.replaced" event is published whenever Register overwrites an
// existing factory.
func New(bus *core.EventBus) *Registry {
	return &Registry{factories: make(map[string]Factory), bus: bus}
}

// Register adds (or replaces) the factory for typeName.
func (r *Registry) Register(typeName string, factory Factory) {
	r.mu.Lock()
	_, existed := r.factories[typeName]
	r.factories[typeName] = factory
	r.mu.Unlock()

	if existed && r.bus != nil {
		r.bus.Publish(core.NewEvent("registry.replaced", typeName, map[string]any{"type": typeName}))
	}
}

// Create builds a node of typeName, returning an UnknownNodeType error if
// no factory is registered.
func (r *Registry) Create(typeName, name string, params map[string]string, children []node.Node) (node.Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, abterr.New(abterr.UnknownNodeType, typeName, "no factory registered for node type")
	}
	if params == nil {
		params = map[string]string{}
	}
	return factory(name, params, children)
}

// Has reports whether typeName has a registered factory.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeName]
	return ok
}

// TypeNames returns every registered type name, in no particular order.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
