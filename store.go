// FILE: lixenwraith/confdist/store.go
package confdist

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot pairs one immutable configuration value with the moment it
// became current and its position in the install sequence. A snapshot
// is never mutated after installation; holding one keeps it valid
// regardless of how many installs happen later.
type Snapshot[T any] struct {
	value   T
	version uint64
	at      time.Time
}

// Value returns the configuration value carried by the snapshot.
func (s *Snapshot[T]) Value() T { return s.value }

// Version returns the install sequence number, starting at 1 for the
// initial value. Versions observed through Load never decrease.
func (s *Snapshot[T]) Version() uint64 { return s.version }

// At returns the time the snapshot became the current configuration.
func (s *Snapshot[T]) At() time.Time { return s.at }

// Store holds exactly one current configuration snapshot behind an
// atomic pointer. Loads are wait-free and never observe a torn or
// partially written value; an install replaces the whole snapshot in
// a single pointer swap.
type Store[T any] struct {
	current atomic.Pointer[Snapshot[T]]
	mu      sync.Mutex // Serializes installs so version order matches install order
	version uint64
}

// NewStore creates a store already holding the initial value. There is
// no way to construct an empty store, so Load is total from the start.
func NewStore[T any](initial T) *Store[T] {
	s := &Store[T]{}
	s.Install(initial)
	return s
}

// Load returns the current snapshot. It never blocks, never returns
// nil, and is safe from any number of goroutines.
func (s *Store[T]) Load() *Snapshot[T] {
	return s.current.Load()
}

// Install wraps value in a fresh snapshot and makes it current.
// In-flight Load calls return either the previous or the new snapshot,
// never a mixture. Concurrent installs serialize with each other; they
// never block loads and loads never block them.
func (s *Store[T]) Install(value T) *Snapshot[T] {
	s.mu.Lock()
	s.version++
	snap := &Snapshot[T]{
		value:   value,
		version: s.version,
		at:      time.Now(),
	}
	s.current.Store(snap)
	s.mu.Unlock()
	return snap
}
