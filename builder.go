// File: lixenwraith/confdist/builder.go
package confdist

import (
	"fmt"

	"go.uber.org/zap"
)

// Builder provides a fluent interface for assembling a manager
type Builder[T any] struct {
	initial    T
	hasInitial bool
	opts       Options
	components []Component[T]
}

// NewBuilder creates a new manager builder
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		opts: DefaultOptions(),
	}
}

// WithInitial sets the configuration value the manager starts with.
// Building without one fails; a manager never exists unconfigured.
func (b *Builder[T]) WithInitial(value T) *Builder[T] {
	b.initial = value
	b.hasInitial = true
	return b
}

// WithBacklog sets the per-subscription backlog size
func (b *Builder[T]) WithBacklog(n int) *Builder[T] {
	b.opts.Backlog = n
	return b
}

// WithMaxSubscriptions caps concurrent change subscriptions
func (b *Builder[T]) WithMaxSubscriptions(n int) *Builder[T] {
	b.opts.MaxSubscriptions = n
	return b
}

// WithLogger sets the logger receiving contained failure reports
func (b *Builder[T]) WithLogger(logger *zap.Logger) *Builder[T] {
	b.opts.Logger = logger
	return b
}

// WithComponent queues a component for registration during Build.
// Components are notified in the order they were added here.
func (b *Builder[T]) WithComponent(c Component[T]) *Builder[T] {
	b.components = append(b.components, c)
	return b
}

// Build assembles the manager and registers the queued components in
// order. The first registration failure aborts the build.
func (b *Builder[T]) Build() (*Manager[T], error) {
	if !b.hasInitial {
		return nil, ErrMissingInitial
	}

	m := NewWithOptions(b.initial, b.opts)
	for _, c := range b.components {
		if err := m.AddComponent(c); err != nil {
			return nil, fmt.Errorf("failed to register component: %w", err)
		}
	}
	return m, nil
}

// MustBuild is like Build but panics on error
func (b *Builder[T]) MustBuild() *Manager[T] {
	m, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("confdist build failed: %v", err))
	}
	return m
}
