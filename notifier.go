// FILE: lixenwraith/confdist/notifier.go
package confdist

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	DefaultBacklog          = 16  // Buffered updates per subscription before lag reporting
	DefaultMaxSubscriptions = 100 // Prevent resource exhaustion
)

// Notifier broadcasts installed snapshots to dynamically created
// subscriptions. Publishing is a bounded amount of work per subscriber
// and never blocks, no matter how far behind any one of them is; one
// subscriber lagging has no effect on what the others receive.
type Notifier[T any] struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription[T]
	subID   atomic.Uint64
	backlog int
	maxSubs int
}

// NewNotifier creates a notifier whose subscriptions each buffer up to
// backlog snapshots. backlog <= 0 selects DefaultBacklog and
// maxSubs <= 0 selects DefaultMaxSubscriptions.
func NewNotifier[T any](backlog, maxSubs int) *Notifier[T] {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if maxSubs <= 0 {
		maxSubs = DefaultMaxSubscriptions
	}
	return &Notifier[T]{
		subs:    make(map[uint64]*Subscription[T]),
		backlog: backlog,
		maxSubs: maxSubs,
	}
}

// Subscribe creates an independent subscription that observes every
// snapshot published after this call returns. Nothing is replayed.
// Once the subscription limit is reached, Subscribe returns an already
// closed subscription to prevent resource exhaustion.
func (n *Notifier[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		notifier: n,
		ring:     make([]*Snapshot[T], n.backlog),
		wake:     make(chan struct{}, 1),
	}

	n.mu.Lock()
	if len(n.subs) >= n.maxSubs {
		n.mu.Unlock()
		sub.ring = nil
		sub.closed = true
		return sub
	}
	sub.id = n.subID.Add(1)
	n.subs[sub.id] = sub
	n.mu.Unlock()

	return sub
}

// Publish appends snap to every live subscription's backlog, dropping
// and counting the oldest entry of any backlog that is already full.
// It never blocks on subscribers. Delivery order per subscription
// matches call order as long as Publish itself is not called
// concurrently; Manager serializes its update rounds for exactly that
// reason.
func (n *Notifier[T]) Publish(snap *Snapshot[T]) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, sub := range n.subs {
		sub.push(snap)
	}
}

// Count returns the number of live subscriptions.
func (n *Notifier[T]) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// remove releases a subscription's broadcast slot.
func (n *Notifier[T]) remove(id uint64) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}

// Subscription is one subscriber's private view of the notifier: a
// bounded ring of not-yet-consumed snapshots plus a wake signal for a
// blocked reader. Publish and Close may race freely with Next, but
// Next itself is meant for a single consuming goroutine.
type Subscription[T any] struct {
	notifier *Notifier[T]
	id       uint64

	mu     sync.Mutex
	ring   []*Snapshot[T] // Fixed capacity, oldest entry at head
	head   int
	count  int
	missed uint64
	closed bool
	wake   chan struct{} // Capacity 1, set when the ring gains content
}

// push appends snap to the ring, evicting the oldest entry when full.
func (s *Subscription[T]) push(snap *Snapshot[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.count == len(s.ring) {
		s.ring[s.head] = nil
		s.head = (s.head + 1) % len(s.ring)
		s.count--
		s.missed++
	}
	s.ring[(s.head+s.count)%len(s.ring)] = snap
	s.count++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Next returns the oldest unconsumed snapshot, blocking until one is
// published, ctx is done, or the subscription is closed.
//
// When the subscription has fallen behind its backlog, Next first
// returns a *LagError carrying the number of dropped updates, and the
// call after that resumes with the oldest snapshot still buffered.
// Updates are therefore delayed or explicitly reported missing, never
// silently skipped.
//
// Buffered snapshots are returned even if ctx is already done; the
// ctx error surfaces only once Next would have to block.
func (s *Subscription[T]) Next(ctx context.Context) (*Snapshot[T], error) {
	for {
		s.mu.Lock()
		switch {
		case s.closed:
			s.mu.Unlock()
			return nil, ErrSubscriptionClosed
		case s.missed > 0:
			missed := s.missed
			s.missed = 0
			s.mu.Unlock()
			return nil, &LagError{Missed: missed}
		case s.count > 0:
			snap := s.ring[s.head]
			s.ring[s.head] = nil
			s.head = (s.head + 1) % len(s.ring)
			s.count--
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
			// Re-check state; the token may be stale
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases the broadcast slot and discards pending snapshots.
// A Next blocked on the subscription returns ErrSubscriptionClosed.
// Close is idempotent and safe to call while Next is running.
func (s *Subscription[T]) Close() {
	s.notifier.remove(s.id)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.ring = nil
	s.head = 0
	s.count = 0
	s.missed = 0
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}
