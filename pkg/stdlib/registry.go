// Package stdlib provides the ITMOScript builtin function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/itmoscript/pkg/evaluator"
)

// Fn represents a builtin function.
type Fn struct {
	Name    string
	Execute func(h *evaluator.Host, args []evaluator.Value) (evaluator.Value, error)
}

// Registry holds registered builtin functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a builtin function to the registry, replacing any function
// of the same name.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin function by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins converts the registry into the form expected by
// evaluator.ExecOptions.
func (r *Registry) Builtins() map[string]*evaluator.BuiltinFn {
	out := make(map[string]*evaluator.BuiltinFn, len(r.fns))
	for name, fn := range r.fns {
		out[name] = &evaluator.BuiltinFn{Name: fn.Name, Execute: fn.Execute}
	}
	return out
}

// Default returns a registry with every builtin registered.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
