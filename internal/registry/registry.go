// Package registry holds the named callables a workflow can invoke. A
// registered callable must be a free-standing function: it is looked up by
// name both in the parent process and inside pool worker processes, which is
// what makes a task transferable under the processes strategy.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/stagerun/internal/task"
)

// Module is the interface every built-in callable module implements to be
// registered on an application's registry.
type Module interface {
	Register(r *Registry)
}

// Registry maps callable names to their Go implementations for a single
// application instance. It is populated once at startup and read-only
// afterwards.
type Registry struct {
	callables map[string]task.Func
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{callables: make(map[string]task.Func)}
}

// Register adds a callable under the given name. Registering a duplicate or
// empty name is a programmer error and panics, matching startup-time
// registration semantics.
func (r *Registry) Register(name string, fn task.Func) {
	if name == "" {
		panic("registry: callable name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("registry: callable %q must not be nil", name))
	}
	if _, exists := r.callables[name]; exists {
		panic(fmt.Sprintf("registry: callable %q already registered", name))
	}
	slog.Debug("Registering callable.", "name", name)
	r.callables[name] = fn
}

// Lookup returns the callable registered under name.
func (r *Registry) Lookup(name string) (task.Func, error) {
	fn, ok := r.callables[name]
	if !ok {
		return nil, fmt.Errorf("no callable registered under %q", name)
	}
	return fn, nil
}

// Names returns all registered callable names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.callables))
	for name := range r.callables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
