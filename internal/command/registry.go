package command

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Factory builds a fresh Request for every command.
type Factory func() Request

// Registry maps operation names to factories.
//
// Thread Safety: Register is for startup only and must not race with Create.
// Once Seal has been called the registry is read-only and Create, Has and
// Names are safe for concurrent use without locking.
type Registry struct {
	factories map[string]Factory
	sealed    atomic.Bool
	nextID    atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds name to factory.
func (r *Registry) Register(name string, factory Factory) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, name)
	}
	if name == "" || strings.ContainsAny(name, "/ \t\n") {
		return fmt.Errorf("%w: name %q", ErrInvalidOperation, name)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidOperation, name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateOperation, name)
	}
	r.factories[name] = factory
	return nil
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Create builds a new pending command for name with a copy of params.
// Every call yields a distinct command with its own completion signal.
func (r *Registry) Create(name string, params Params) (*Command, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return newCommand(r.nextID.Add(1), name, params, factory()), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered operation names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
