// FILE: lixenwraith/confdist/component.go
package confdist

// HealthState grades component health from least to most severe.
type HealthState int

const (
	StateHealthy HealthState = iota
	StateDegraded
	StateUnhealthy
)

// String returns the lowercase name of the state.
func (s HealthState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Health describes the current condition of a component. Reason is
// empty for healthy components and explains the problem otherwise.
type Health struct {
	State  HealthState
	Reason string
}

// Healthy reports a fully operational component.
func Healthy() Health { return Health{State: StateHealthy} }

// Degraded reports a component operating with reduced capability.
func Degraded(reason string) Health { return Health{State: StateDegraded, Reason: reason} }

// Unhealthy reports a component that cannot do its job.
func Unhealthy(reason string) Health { return Health{State: StateUnhealthy, Reason: reason} }

// Worse returns the more severe of h and other. Ties keep h.
func (h Health) Worse(other Health) Health {
	if other.State > h.State {
		return other
	}
	return h
}

// Component is the capability set the registry requires from anything
// that wants synchronous configuration updates. There is no base type;
// implementing the three methods is the whole contract.
//
// OnConfigUpdate runs on the updater's goroutine with the new snapshot
// already installed, so reading back through the manager during the
// callback yields the new value. Callbacks should be cheap and must
// not block; a returned error or a panic marks the component failed
// for that round without affecting the components after it.
type Component[T any] interface {
	Name() string
	OnConfigUpdate(snap *Snapshot[T]) error
	HealthCheck() Health
}

// ComponentFunc adapts a bare function to the Component interface.
// The resulting component always reports healthy.
func ComponentFunc[T any](name string, fn func(snap *Snapshot[T]) error) Component[T] {
	return &funcComponent[T]{name: name, fn: fn}
}

type funcComponent[T any] struct {
	name string
	fn   func(snap *Snapshot[T]) error
}

func (f *funcComponent[T]) Name() string { return f.name }

func (f *funcComponent[T]) OnConfigUpdate(snap *Snapshot[T]) error { return f.fn(snap) }

func (f *funcComponent[T]) HealthCheck() Health { return Healthy() }
