// FILE: lixenwraith/confdist/options.go
package confdist

import "go.uber.org/zap"

// Options configures manager behavior
type Options struct {
	// Backlog is the per-subscription buffered update count before
	// lag reporting kicks in (minimum 1)
	Backlog int

	// MaxSubscriptions limits concurrent change subscriptions
	MaxSubscriptions int

	// Logger receives contained component failures and update round
	// diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the standard manager tuning
func DefaultOptions() Options {
	return Options{
		Backlog:          DefaultBacklog,
		MaxSubscriptions: DefaultMaxSubscriptions,
	}
}

// withDefaults fills unset fields with their defaults.
func (o Options) withDefaults() Options {
	if o.Backlog <= 0 {
		o.Backlog = DefaultBacklog
	}
	if o.MaxSubscriptions <= 0 {
		o.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
