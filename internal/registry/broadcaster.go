package registry

import (
	"sync"

	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/metrics"
)

// Broadcaster fans events out to every active subscription of one user. A
// single broadcaster is shared by all of that user's simultaneous connections;
// each connection holds its own Subscription with an independent read cursor.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription is one receiver attached to a broadcaster. C is closed when
// the user's registry entry is evicted, which subscribers observe as stream
// end, or when the subscription itself is cancelled.
type Subscription struct {
	C <-chan events.Event

	ch chan events.Event
	b  *Broadcaster
}

func newBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe attaches a new receiver. Subscribing to a broadcaster that has
// already been evicted returns a subscription whose channel is closed, so the
// caller observes immediate stream end and reconnects.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan events.Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, b: b}
	if b.closed {
		close(ch)
		return sub
	}

	b.subs[sub] = struct{}{}
	return sub
}

// Publish enqueues the event on every subscription without ever blocking.
// Events published after eviction are silently discarded.
func (b *Broadcaster) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for sub := range b.subs {
		sub.offer(e)
	}
}

// offer enqueues without blocking: when the subscriber's buffer is full the
// oldest unread event is discarded to make room, so one stalled consumer
// never delays delivery to the others. Callers must hold b.mu.
func (s *Subscription) offer(e events.Event) {
	for {
		select {
		case s.ch <- e:
			return
		default:
		}

		select {
		case <-s.ch:
			metrics.EventsDroppedTotal.Inc()
		default:
		}
	}
}

// Cancel detaches this subscription only. The broadcaster and any other
// subscriptions of the same user stay live, so disconnecting one device never
// tears down the user's channel.
func (s *Subscription) Cancel() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	if s.b.closed {
		return
	}

	if _, ok := s.b.subs[s]; ok {
		delete(s.b.subs, s)
		close(s.ch)
	}
}

// close shuts the broadcaster down, ending the stream of every attached
// subscription. Only the registry calls this, on liveness eviction.
func (b *Broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}
