// FILE: lixenwraith/confdist/registry.go
package confdist

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Registry tracks components in registration order and fans
// configuration updates out to them synchronously.
type Registry[T any] struct {
	mu         sync.RWMutex
	components []Component[T] // Notification order = registration order
	names      map[string]struct{}
	logger     *zap.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry[T any](logger *zap.Logger) *Registry[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry[T]{
		names:  make(map[string]struct{}),
		logger: logger,
	}
}

// Add registers a component. Components are notified in the order they
// were added. Names must be unique and non-empty. A component added
// after updates have already been distributed sees only later updates;
// the current snapshot is not replayed.
func (r *Registry[T]) Add(c Component[T]) error {
	if c == nil {
		return ErrNilComponent
	}
	name := c.Name()
	if name == "" {
		return ErrEmptyComponentName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, name)
	}
	r.names[name] = struct{}{}
	r.components = append(r.components, c)
	return nil
}

// Remove unregisters the named component. Rounds that start after
// Remove returns no longer include it; a round already in flight on
// another goroutine may still reach it once.
func (r *Registry[T]) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	delete(r.names, name)
	r.components = slices.DeleteFunc(r.components, func(c Component[T]) bool {
		return c.Name() == name
	})
	return nil
}

// Names returns registered component names in notification order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.components))
	for i, c := range r.components {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of registered components.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// NotifyAll delivers snap to every component on the calling goroutine,
// in registration order. A component that returns an error or panics
// is logged and stepped past; the components after it are always
// reached. The per-component failures come back joined, nil when every
// component accepted the update.
func (r *Registry[T]) NotifyAll(snap *Snapshot[T]) error {
	// Clone under the read lock, invoke outside it, so Add and Remove
	// on other goroutines never wait on component callbacks.
	r.mu.RLock()
	components := slices.Clone(r.components)
	r.mu.RUnlock()

	var errs []error
	for _, c := range components {
		if err := r.notify(c, snap); err != nil {
			r.logger.Warn("config update rejected by component",
				zap.String("component", c.Name()),
				zap.Uint64("version", snap.Version()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("component %q: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// notify invokes one callback with panic containment.
func (r *Registry[T]) notify(c Component[T], snap *Snapshot[T]) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in OnConfigUpdate: %v", rec)
		}
	}()
	return c.OnConfigUpdate(snap)
}

// HealthCheckAll polls every component and returns health keyed by
// component name. A panicking health check reports unhealthy and never
// interrupts the poll.
func (r *Registry[T]) HealthCheckAll() map[string]Health {
	r.mu.RLock()
	components := slices.Clone(r.components)
	r.mu.RUnlock()

	result := make(map[string]Health, len(components))
	for _, c := range components {
		result[c.Name()] = r.check(c)
	}
	return result
}

// Health reduces all component healths to the most severe one, with
// the reason prefixed by the component name. An empty registry is
// healthy. Ties go to the component registered first.
func (r *Registry[T]) Health() Health {
	r.mu.RLock()
	components := slices.Clone(r.components)
	r.mu.RUnlock()

	worst := Healthy()
	for _, c := range components {
		h := r.check(c)
		if h.State > worst.State {
			worst = h
			if h.Reason != "" {
				worst.Reason = c.Name() + ": " + h.Reason
			} else {
				worst.Reason = c.Name()
			}
		}
	}
	return worst
}

// check invokes one health callback with panic containment.
func (r *Registry[T]) check(c Component[T]) (h Health) {
	defer func() {
		if rec := recover(); rec != nil {
			h = Unhealthy(fmt.Sprintf("panic in HealthCheck: %v", rec))
		}
	}()
	return c.HealthCheck()
}
