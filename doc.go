// File: lixenwraith/confdist/doc.go

// Package confdist distributes hot-reloadable configuration inside a
// process: one writer installs new configuration values while many
// readers, components, and subscribers consume them without locks,
// torn reads, or missed-and-unreported updates.
//
// Features:
//   - Atomic snapshot store built on atomic.Pointer, wait-free reads
//   - Opaque generic payload type; the package never inspects it
//   - Component registry with synchronous, ordered update callbacks
//   - Per-component failure containment (errors and panics)
//   - Component health reporting and worst-of aggregation
//   - Bounded broadcast subscriptions with explicit lag reporting
//   - Non-blocking publish regardless of subscriber speed
//   - Builder pattern for easy initialization
//   - Optional zap logging, silent by default
//
// Quick Start:
//
//	type AppConfig struct {
//	    Addr     string
//	    LogLevel string
//	}
//
//	mgr := confdist.New(AppConfig{Addr: ":8080", LogLevel: "info"})
//
//	cfg := mgr.GetConfig().Value() // lock-free read
//
//	sub := mgr.Subscribe()
//	go func() {
//	    defer sub.Close()
//	    for {
//	        snap, err := sub.Next(context.Background())
//	        if err != nil {
//	            var lag *confdist.LagError
//	            if errors.As(err, &lag) {
//	                continue // dropped lag.Missed updates, stream resumes
//	            }
//	            return
//	        }
//	        apply(snap.Value())
//	    }
//	}()
//
//	mgr.UpdateConfig(AppConfig{Addr: ":8080", LogLevel: "debug"})
//
// Update Ordering:
// UpdateConfig installs the snapshot first, then notifies registered
// components synchronously in registration order, then publishes to
// subscriptions. Components therefore observe a change no later than
// broadcast subscribers, and GetConfig returns the new value before
// either group hears about it.
//
// Thread Safety:
// All operations are safe for concurrent use. Reads are wait-free on
// an atomic pointer; updates serialize with each other but never block
// readers. Subscription.Next is the one single-consumer surface.
package confdist
