// FILE: lixenwraith/confdist/errors.go
package confdist

import (
	"errors"
	"fmt"
)

var (
	// ErrNilComponent is returned when registering a nil component.
	ErrNilComponent = errors.New("component is nil")

	// ErrEmptyComponentName is returned when a component reports an
	// empty name at registration.
	ErrEmptyComponentName = errors.New("component name is empty")

	// ErrDuplicateComponent is returned when a name is already taken.
	ErrDuplicateComponent = errors.New("component name already registered")

	// ErrUnknownComponent is returned when removing a name that was
	// never registered.
	ErrUnknownComponent = errors.New("component not registered")

	// ErrSubscriptionClosed is returned by Next once a subscription has
	// been closed.
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrMissingInitial is returned by Builder.Build when no initial
	// configuration value was supplied.
	ErrMissingInitial = errors.New("initial configuration value is required")
)

// LagError reports that a subscription fell behind its backlog and
// Missed updates were dropped. Next returns it at most once per
// overflow episode; the following call resumes with the oldest update
// still buffered.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscription lagged: %d updates dropped", e.Missed)
}
