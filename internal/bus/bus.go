// package bus implements the process-wide change-notification surface.
//
// Domain mutations are translated into typed [EntityChange] values and fanned
// out to every live [Subscription]. Delivery is fire-and-forget: there is no
// replay for late subscribers and no acknowledgement. Events published from
// one goroutine reach each subscriber in publication order; no ordering holds
// across producers. Subscribers that fall behind lose events (counted and
// logged), never block a publisher.
package bus

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/castro/internal/shared"
)

// defaultBuffer is the per-subscription channel capacity.
const defaultBuffer = 64

// Notification is one named signal with an optional payload. It carries both
// cache invalidations and terminal success/failure signals for detached
// operations.
type Notification struct {
	Signal  string `json:"signal"`
	Payload any    `json:"payload,omitempty"`
}

// Subscription receives notifications published after it was created.
type Subscription struct {
	C  <-chan Notification
	ch chan Notification
}

// Bus fans notifications out to subscribers.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	dropped uint64
	logger  *log.Logger
}

// New creates an empty bus.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new observer. Events published before this call are
// never delivered to it.
func (b *Bus) Subscribe() *Subscription {
	ch := make(chan Notification, defaultBuffer)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes an observer and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers the notification to all current subscribers.
//
// Returns [shared.ErrNoSubscribers] when nobody is listening; the event is
// not queued or retried. A full subscriber channel drops the event for that
// subscriber only.
func (b *Bus) Publish(n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) == 0 {
		return fmt.Errorf("%w: signal %s", shared.ErrNoSubscribers, n.Signal)
	}

	for sub := range b.subs {
		select {
		case sub.ch <- n:
		default:
			b.dropped++
			b.logger.Warn("dropped notification for slow subscriber", "signal", n.Signal, "total_dropped", b.dropped)
		}
	}

	return nil
}

// InvalidateCache publishes an entity-change notification telling the
// frontend which cached entity is stale.
func (b *Bus) InvalidateCache(change EntityChange) error {
	return b.Publish(Notification{Signal: SignalInvalidateCache, Payload: change})
}

// Dropped returns the number of events lost to slow subscribers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close unsubscribes everyone.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
