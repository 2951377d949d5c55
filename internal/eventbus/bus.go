package eventbus

import (
	"sync"
	"time"
)

// DefaultCapacity is the default per-subscriber ring buffer size, spec §4.6.
const DefaultCapacity = 256

// Bus is a multi-producer, multi-subscriber broadcast of Events with a
// fixed-capacity ring per subscriber. Publishing never blocks: a full
// subscriber buffer drops its oldest event and increments that
// subscriber's dropped count. Grounded on the teacher's LogBroadcaster
// (internal/daemon/logs.go), generalized from a map of raw string
// channels to typed Subscription handles that each track their own
// dropped_count, and from unbounded best-effort string channels to a
// capacity-bound ring per spec §4.6.
type Bus struct {
	mu          sync.Mutex
	capacity    int
	subscribers map[*Subscription]struct{}
}

// New creates a Bus. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{capacity: capacity, subscribers: make(map[*Subscription]struct{})}
}

// Subscription is a handle returned by Subscribe. Events() yields a
// lazy, finite-only-on-shutdown sequence; Dropped() reports the current
// drop count.
type Subscription struct {
	bus *Bus

	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped int
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{bus: b, ch: make(chan Event, b.capacity)}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes sub from the bus and closes its channel. Safe to
// call more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subscribers, sub)
	b.mu.Unlock()

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
	sub.mu.Unlock()
}

// Publish broadcasts ev to every current subscriber. Never blocks.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// deliver pushes ev into sub's ring, dropping the oldest buffered event
// if full. Delivery to a closed subscription is a silent no-op.
func (sub *Subscription) deliver(ev Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	for {
		select {
		case sub.ch <- ev:
			return
		default:
		}
		select {
		case <-sub.ch:
			sub.dropped++
		default:
			// Raced with a concurrent receive; retry the send.
		}
	}
}

// Events returns the channel to range over for delivered events. The
// channel closes once Unsubscribe is called.
func (sub *Subscription) Events() <-chan Event {
	return sub.ch
}

// Dropped returns the number of events dropped for this subscriber so far.
func (sub *Subscription) Dropped() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.dropped
}
