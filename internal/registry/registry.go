// Package registry implements the name-keyed store shared by the entity,
// function, and tool-export domains: canonical items, flat aliases, and a
// quarantine namespace that refuses invocation without deleting the name.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Named is implemented by anything a Registry can hold.
type Named interface {
	RegistryName() string
}

// Registry is a generic name-keyed store. A name is in at most one of
// {items, aliases, quarantined} at any time; aliases resolve in a single
// hop; quarantined lookups fail explicitly with the stored reason.
type Registry[T Named] struct {
	mu          sync.RWMutex
	items       map[string]T
	aliases     map[string]string
	quarantined map[string]string
}

// New creates an empty Registry.
func New[T Named]() *Registry[T] {
	return &Registry[T]{
		items:       make(map[string]T),
		aliases:     make(map[string]string),
		quarantined: make(map[string]string),
	}
}

// ErrQuarantined is returned by Get when a name is quarantined; callers can
// type-assert to retrieve the recorded reason.
type ErrQuarantined struct {
	Name   string
	Reason string
}

func (e *ErrQuarantined) Error() string {
	return fmt.Sprintf("%q is quarantined: %s", e.Name, e.Reason)
}

// ErrNotFound is returned by Get when a name is unknown.
type ErrNotFound struct{ Name string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("%q not found", e.Name) }

func (r *Registry[T]) occupied(name string) bool {
	if _, ok := r.items[name]; ok {
		return true
	}
	if _, ok := r.aliases[name]; ok {
		return true
	}
	if _, ok := r.quarantined[name]; ok {
		return true
	}
	return false
}

// Register adds item under its own name. It fails if the name already
// exists as a canonical item, an alias, or a quarantined entry.
func (r *Registry[T]) Register(item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := item.RegistryName()
	if r.occupied(name) {
		return fmt.Errorf("name %q is already registered", name)
	}
	r.items[name] = item
	return nil
}

// RegisterAll registers every item, stopping at (and returning) the first
// failure. Items registered before the failure remain registered.
func (r *Registry[T]) RegisterAll(items []T) error {
	for _, it := range items {
		if err := r.Register(it); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAlias points alias at an already-registered canonical name.
// Fails on self-alias, shadowing an existing name, chaining (target must
// itself be a canonical item, not another alias), or an unknown target.
func (r *Registry[T]) RegisterAlias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if alias == target {
		return fmt.Errorf("alias %q cannot target itself", alias)
	}
	if r.occupied(alias) {
		return fmt.Errorf("name %q is already registered", alias)
	}
	if _, ok := r.items[target]; !ok {
		if _, isAlias := r.aliases[target]; isAlias {
			return fmt.Errorf("alias %q cannot target another alias %q (chains are forbidden)", alias, target)
		}
		return fmt.Errorf("alias target %q does not exist", target)
	}
	r.aliases[alias] = target
	return nil
}

// MarkQuarantined moves name into the quarantine namespace with reason,
// without removing any existing canonical registration for a different
// name. If name is currently a canonical item it is converted in place
// (still "registered", per the fail-closed contract: the name is never
// orphaned, only refused).
func (r *Registry[T]) MarkQuarantined(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, name)
	delete(r.aliases, name)
	r.quarantined[name] = reason
}

// Get resolves name through at most one alias hop, then returns the item.
// Quarantined names return ErrQuarantined with the stored reason; unknown
// names return ErrNotFound.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T

	if reason, ok := r.quarantined[name]; ok {
		return zero, &ErrQuarantined{Name: name, Reason: reason}
	}
	resolved := name
	if target, ok := r.aliases[name]; ok {
		resolved = target
		if reason, ok := r.quarantined[resolved]; ok {
			return zero, &ErrQuarantined{Name: name, Reason: reason}
		}
	}
	if item, ok := r.items[resolved]; ok {
		return item, nil
	}
	return zero, &ErrNotFound{Name: name}
}

// Contains reports whether name resolves to anything (item, alias, or
// quarantine) without raising.
func (r *Registry[T]) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupied(name)
}

// IsQuarantined reports whether name is currently quarantined, and if so
// the recorded reason.
func (r *Registry[T]) IsQuarantined(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reason, ok := r.quarantined[name]
	return reason, ok
}

// Iterate returns canonical items sorted by name, for deterministic
// diagnostics and listings. Aliases and quarantined names are not items.
func (r *Registry[T]) Iterate() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for n := range r.items {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]T, 0, len(names))
	for _, n := range names {
		out = append(out, r.items[n])
	}
	return out
}

// Length returns the number of canonical items (excluding aliases and
// quarantined names).
func (r *Registry[T]) Length() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
