// FILE: lixenwraith/confdist/notifier_test.go
package confdist

import (
	"context"
	"errors"
	"testing"
	"time"
)

// snapOf builds a bare snapshot for notifier-level tests.
func snapOf(value string, version uint64) *Snapshot[string] {
	return &Snapshot[string]{value: value, version: version, at: time.Now()}
}

// nextWithin reads one result from the subscription with a deadline so
// a misbehaving notifier fails the test instead of hanging it.
func nextWithin(t *testing.T, sub *Subscription[string], d time.Duration) (*Snapshot[string], error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return sub.Next(ctx)
}

func TestSubscribeReceivesPublished(t *testing.T) {
	n := NewNotifier[string](0, 0)
	sub := n.Subscribe()
	defer sub.Close()

	n.Publish(snapOf("a", 1))
	n.Publish(snapOf("b", 2))

	for i, want := range []string{"a", "b"} {
		snap, err := nextWithin(t, sub, time.Second)
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if snap.Value() != want {
			t.Errorf("read %d: got %q, want %q", i, snap.Value(), want)
		}
	}
}

func TestSubscribeSeesOnlyLaterValues(t *testing.T) {
	n := NewNotifier[string](0, 0)

	n.Publish(snapOf("before", 1))

	sub := n.Subscribe()
	defer sub.Close()

	// Nothing buffered: values from before the subscription are not replayed
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sub.Next(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected empty subscription, got %v", err)
	}

	n.Publish(snapOf("after", 2))
	snap, err := nextWithin(t, sub, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Value() != "after" {
		t.Errorf("got %q, want %q", snap.Value(), "after")
	}
}

func TestBacklogOverflow(t *testing.T) {
	n := NewNotifier[string](2, 0)
	sub := n.Subscribe()
	defer sub.Close()

	// Three publishes against a backlog of two: A is dropped
	n.Publish(snapOf("A", 1))
	n.Publish(snapOf("B", 2))
	n.Publish(snapOf("C", 3))

	_, err := nextWithin(t, sub, time.Second)
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("expected lag error, got %v", err)
	}
	if lag.Missed != 1 {
		t.Errorf("missed = %d, want 1", lag.Missed)
	}

	// Stream resumes from the oldest value still buffered, no silent skips
	for i, want := range []string{"B", "C"} {
		snap, err := nextWithin(t, sub, time.Second)
		if err != nil {
			t.Fatalf("read %d after lag: unexpected error: %v", i, err)
		}
		if snap.Value() != want {
			t.Errorf("read %d after lag: got %q, want %q", i, snap.Value(), want)
		}
	}

	// Lag is reported once per episode
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := sub.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected drained subscription, got %v", err)
	}
}

func TestLaggingSubscriberDoesNotAffectOthers(t *testing.T) {
	n := NewNotifier[string](2, 0)

	slow := n.Subscribe()
	defer slow.Close()
	fast := n.Subscribe()
	defer fast.Close()

	values := []string{"v1", "v2", "v3", "v4", "v5"}
	for i, v := range values {
		n.Publish(snapOf(v, uint64(i+1)))

		// Fast subscriber keeps up; slow one never reads
		snap, err := nextWithin(t, fast, time.Second)
		if err != nil {
			t.Fatalf("fast read %d: unexpected error: %v", i, err)
		}
		if snap.Value() != v {
			t.Errorf("fast read %d: got %q, want %q", i, snap.Value(), v)
		}
	}

	// Slow subscriber sees one lag report, then the retained tail
	_, err := nextWithin(t, slow, time.Second)
	var lag *LagError
	if !errors.As(err, &lag) {
		t.Fatalf("expected lag error, got %v", err)
	}
	if lag.Missed != 3 {
		t.Errorf("missed = %d, want 3", lag.Missed)
	}
	for i, want := range []string{"v4", "v5"} {
		snap, err := nextWithin(t, slow, time.Second)
		if err != nil {
			t.Fatalf("slow read %d: unexpected error: %v", i, err)
		}
		if snap.Value() != want {
			t.Errorf("slow read %d: got %q, want %q", i, snap.Value(), want)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	n := NewNotifier[string](1, 0)
	sub := n.Subscribe()
	defer sub.Close()

	// Nobody reads sub; a blocking publish would hang here
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			n.Publish(snapOf("x", uint64(i+1)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on an unread subscription")
	}
}

func TestSubscriptionClose(t *testing.T) {
	n := NewNotifier[string](0, 0)
	sub := n.Subscribe()

	if n.Count() != 1 {
		t.Fatalf("count = %d, want 1", n.Count())
	}

	n.Publish(snapOf("pending", 1))
	sub.Close()

	if n.Count() != 0 {
		t.Errorf("count after close = %d, want 0", n.Count())
	}

	// Pending values are discarded once closed
	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("expected ErrSubscriptionClosed, got %v", err)
	}

	// Idempotent
	sub.Close()

	// Publishing to a closed subscription is a no-op
	n.Publish(snapOf("late", 2))
	if _, err := sub.Next(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("expected ErrSubscriptionClosed after late publish, got %v", err)
	}
}

func TestCloseUnblocksNext(t *testing.T) {
	n := NewNotifier[string](0, 0)
	sub := n.Subscribe()

	result := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		result <- err
	}()

	// Give Next a moment to block before closing
	time.Sleep(20 * time.Millisecond)
	sub.Close()

	select {
	case err := <-result:
		if !errors.Is(err, ErrSubscriptionClosed) {
			t.Errorf("expected ErrSubscriptionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock on Close")
	}
}

func TestNextContextCancel(t *testing.T) {
	n := NewNotifier[string](0, 0)
	sub := n.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := sub.Next(ctx)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock on context cancellation")
	}
}

func TestMaxSubscriptions(t *testing.T) {
	n := NewNotifier[string](0, 2)

	first := n.Subscribe()
	defer first.Close()
	second := n.Subscribe()
	defer second.Close()
	third := n.Subscribe()

	if n.Count() != 2 {
		t.Errorf("count = %d, want 2", n.Count())
	}

	// Over the limit: the subscription arrives already closed
	if _, err := third.Next(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("expected ErrSubscriptionClosed, got %v", err)
	}

	// Live subscriptions are unaffected
	n.Publish(snapOf("still works", 1))
	snap, err := nextWithin(t, first, time.Second)
	if err != nil || snap.Value() != "still works" {
		t.Errorf("first subscriber: got (%v, %v)", snap, err)
	}
}

func TestConcurrentPublishConsume(t *testing.T) {
	const total = 500

	n := NewNotifier[string](total, 0)
	sub := n.Subscribe()
	defer sub.Close()

	go func() {
		for i := 1; i <= total; i++ {
			n.Publish(snapOf("v", uint64(i)))
		}
	}()

	var lastVersion uint64
	for received := 0; received < total; received++ {
		snap, err := nextWithin(t, sub, 5*time.Second)
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", received, err)
		}
		if snap.Version() != lastVersion+1 {
			t.Fatalf("read %d: version %d, want %d", received, snap.Version(), lastVersion+1)
		}
		lastVersion = snap.Version()
	}
}

func BenchmarkPublishFanout(b *testing.B) {
	n := NewNotifier[string](4, 0)
	for i := 0; i < 10; i++ {
		defer n.Subscribe().Close()
	}

	snap := snapOf("bench", 1)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Publish(snap)
	}
}
