package view

import (
	"sync"

	"github.com/reflow-dev/reflow/pkg/state"
)

// Context is passed to every component invocation. It carries the store and
// arbitrary host values; components never reach for ambient globals.
type Context struct {
	Store  *state.Store
	Values map[string]any
}

// Value returns a host value by key, or nil.
func (c *Context) Value(key string) any {
	if c == nil || c.Values == nil {
		return nil
	}
	return c.Values[key]
}

// Component is an opaque callable that accepts props and a context and
// returns something renderable: a view node (wire format or *Node), a
// Renderable, a Pending of either, or a scalar coerced to text.
type Component func(props Props, ctx *Context) any

// Renderable is the object component shape: anything exposing a
// zero-argument Render method. The result may itself be Pending.
type Renderable interface {
	Render() any
}

// Registry maps component names to their functions. A view node whose tag
// matches a registered name dispatches to the component instead of emitting
// an element.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Component)}
}

// Register binds name to fn, replacing any previous registration.
func (r *Registry) Register(name string, fn Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = fn
}

// Lookup returns the component registered under name.
func (r *Registry) Lookup(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.components[name]
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Names returns the registered component names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	return names
}
