// Package syncx provides typed synchronization helpers.
package syncx

import "sync"

// RWGuard is a value behind an RWMutex. Every write bumps a version so
// readers can tell whether the value changed since they last looked.
type RWGuard[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// NewGuard creates a guarded value at version 0.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns a copy of the value (T should be a value type or immutable).
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Version returns the number of writes so far.
func (g *RWGuard[T]) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Set replaces the value and returns the new version.
func (g *RWGuard[T]) Set(v T) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
	g.version++
	return g.version
}
