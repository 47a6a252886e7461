package bus

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/desertthunder/castro/internal/shared"
)

func newTestBus() *Bus {
	return New(shared.NewLogger(io.Discard))
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := newTestBus()

	err := b.Publish(Notification{Signal: SignalSyncDone})
	if !errors.Is(err, shared.ErrNoSubscribers) {
		t.Errorf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestPublishDelivery(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe()

	if err := b.InvalidateCache(EpisodeChange(42)); err != nil {
		t.Fatalf("InvalidateCache returned error: %v", err)
	}

	n := <-sub.C
	if n.Signal != SignalInvalidateCache {
		t.Errorf("expected invalidate-cache signal, got %s", n.Signal)
	}
	change, ok := n.Payload.(EntityChange)
	if !ok {
		t.Fatalf("expected EntityChange payload, got %T", n.Payload)
	}
	if change.Kind != EntityEpisode || change.ID != 42 {
		t.Errorf("unexpected change: %v", change)
	}
}

func TestLateSubscriberSeesNothing(t *testing.T) {
	b := newTestBus()
	early := b.Subscribe()

	if err := b.Publish(Notification{Signal: SignalImportDone, Payload: "req-1"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	late := b.Subscribe()
	if err := b.Publish(Notification{Signal: SignalImportDone, Payload: "req-2"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	// Early subscriber saw both, late subscriber only the second.
	if got := len(early.ch); got != 2 {
		t.Errorf("expected early subscriber to hold 2 events, got %d", got)
	}
	if got := len(late.ch); got != 1 {
		t.Errorf("expected late subscriber to hold 1 event, got %d", got)
	}
	if n := <-late.C; n.Payload != "req-2" {
		t.Errorf("late subscriber should only see req-2, got %v", n.Payload)
	}
}

func TestSingleProducerOrdering(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe()

	for i := int64(0); i < 10; i++ {
		if err := b.InvalidateCache(EpisodeChange(i)); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
	}

	for i := int64(0); i < 10; i++ {
		n := <-sub.C
		change := n.Payload.(EntityChange)
		if change.ID != i {
			t.Fatalf("event %d delivered out of order: got id %d", i, change.ID)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	b := newTestBus()
	b.Subscribe() // never drained

	// Publish more than the channel buffers; must not deadlock.
	for i := 0; i < defaultBuffer*2; i++ {
		if err := b.Publish(Notification{Signal: SignalSyncDone}); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
	}

	if b.Dropped() == 0 {
		t.Error("expected dropped events for slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, open := <-sub.C; open {
		t.Error("expected channel to be closed after Unsubscribe")
	}

	// Double unsubscribe is a no-op.
	b.Unsubscribe(sub)

	if err := b.Publish(Notification{Signal: SignalSyncDone}); !errors.Is(err, shared.ErrNoSubscribers) {
		t.Errorf("expected ErrNoSubscribers after last unsubscribe, got %v", err)
	}
}

func TestConcurrentPublishers(t *testing.T) {
	b := newTestBus()
	sub := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		count := 0
		for range sub.C {
			count++
			if count == 20 {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(producer int64) {
			defer wg.Done()
			for i := int64(0); i < 5; i++ {
				b.InvalidateCache(PodcastChange(producer*100 + i))
			}
		}(int64(p))
	}

	wg.Wait()
	<-done
}
