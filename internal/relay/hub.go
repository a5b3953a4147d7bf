package relay

import (
	"sync"
	"sync/atomic"

	"github.com/ayusman/handpilot/internal/control"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Subscription receives records from a Hub.
type Subscription struct {
	C <-chan control.Record

	ch      chan control.Record
	dropped atomic.Int64
}

// Dropped returns how many records this subscriber missed because its queue
// was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Hub fans records out to subscribers. Publish never blocks: a subscriber
// whose queue is full misses the record.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	latest control.Record
	seen   bool
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber with the given queue length. The channel
// of a subscription made after Close is already closed.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan control.Record, buffer)
	sub := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Publish records rec as the latest and offers it to every subscriber.
func (h *Hub) Publish(rec control.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.latest = rec
	h.seen = true

	for sub := range h.subs {
		select {
		case sub.ch <- rec:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Latest returns the most recent record, and false if none was published yet.
func (h *Hub) Latest() (control.Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.seen
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = make(map[*Subscription]struct{})
}
