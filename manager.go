// FILE: lixenwraith/confdist/manager.go
package confdist

import (
	"sync"

	"go.uber.org/zap"
)

// Manager owns one snapshot store, one component registry, and one
// change notifier, and keeps the three consistent. Construction
// installs the initial value, so a manager is distributing
// configuration from the moment it exists; there is no uninitialized
// state to guard against.
type Manager[T any] struct {
	store    *Store[T]
	registry *Registry[T]
	notifier *Notifier[T]
	logger   *zap.Logger
	updateMu sync.Mutex // Serializes update rounds end to end
}

// New creates a manager distributing initial as the first snapshot,
// with default options.
func New[T any](initial T) *Manager[T] {
	return NewWithOptions(initial, DefaultOptions())
}

// NewWithOptions creates a manager with explicit tuning. Unset fields
// in opts fall back to their defaults.
func NewWithOptions[T any](initial T, opts Options) *Manager[T] {
	opts = opts.withDefaults()
	return &Manager[T]{
		store:    NewStore(initial),
		registry: NewRegistry[T](opts.Logger),
		notifier: NewNotifier[T](opts.Backlog, opts.MaxSubscriptions),
		logger:   opts.Logger,
	}
}

// UpdateConfig distributes value as the new current configuration:
// it installs the snapshot in the store, then notifies registered
// components synchronously on the calling goroutine in registration
// order, then publishes to change subscriptions. By the time any
// component or subscriber observes the update, GetConfig already
// returns the new value.
//
// Component failures are contained by the registry; the update always
// completes, and the joined failures come back as an advisory error.
// Concurrent calls are serialized, so rounds never interleave and
// every observer sees one update in full before the next begins.
func (m *Manager[T]) UpdateConfig(value T) error {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	snap := m.store.Install(value)
	m.logger.Debug("installed new config",
		zap.Uint64("version", snap.Version()),
		zap.Time("at", snap.At()))

	err := m.registry.NotifyAll(snap)
	m.notifier.Publish(snap)
	return err
}

// GetConfig returns the current snapshot. It never blocks and is safe
// at any call rate from any goroutine, including from inside
// OnConfigUpdate callbacks.
func (m *Manager[T]) GetConfig() *Snapshot[T] {
	return m.store.Load()
}

// Subscribe opens an independent change subscription. It observes only
// updates distributed after this call; the current snapshot is not
// replayed, so callers that need it should GetConfig first and then
// consume the subscription.
func (m *Manager[T]) Subscribe() *Subscription[T] {
	return m.notifier.Subscribe()
}

// AddComponent registers a component for synchronous update
// notifications. A component added after some updates have been
// distributed sees only later updates.
func (m *Manager[T]) AddComponent(c Component[T]) error {
	return m.registry.Add(c)
}

// RemoveComponent unregisters a component by name.
func (m *Manager[T]) RemoveComponent(name string) error {
	return m.registry.Remove(name)
}

// Components returns registered component names in notification order.
func (m *Manager[T]) Components() []string {
	return m.registry.Names()
}

// SubscriberCount returns the number of live change subscriptions.
func (m *Manager[T]) SubscriberCount() int {
	return m.notifier.Count()
}

// HealthCheckAll polls every registered component and returns health
// keyed by component name.
func (m *Manager[T]) HealthCheckAll() map[string]Health {
	return m.registry.HealthCheckAll()
}

// Health returns the most severe component health. A manager with no
// components is healthy.
func (m *Manager[T]) Health() Health {
	return m.registry.Health()
}
