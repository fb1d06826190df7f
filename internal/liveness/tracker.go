package liveness

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	DefaultTTL           = 5 * time.Second
	DefaultSweepInterval = time.Second
)

// ChannelRemover releases a user's delivery channel once the user is no
// longer considered alive. It is implemented by registry.Registry.
type ChannelRemover interface {
	Remove(userID int64)
}

// Tracker records a TTL-bounded liveness claim per user. Clients refresh
// their claim with authenticated heartbeats; a periodic sweep expires stale
// claims and drops the corresponding delivery channels. A user with no
// record is simply unknown: a fresh heartbeat re-enters the alive state and
// the registry recreates the channel on the next subscribe.
type Tracker struct {
	log      *log.Logger
	channels ChannelRemover
	ttl      time.Duration
	interval time.Duration

	mu      sync.Mutex
	expires map[int64]time.Time
}

func NewTracker(logger *log.Logger, channels ChannelRemover, ttl, interval time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Tracker{
		log:      logger,
		channels: channels,
		ttl:      ttl,
		interval: interval,
		expires:  make(map[int64]time.Time),
	}
}

// Heartbeat marks userID alive for another TTL, inserting a record if absent.
func (t *Tracker) Heartbeat(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[userID] = time.Now().Add(t.ttl)
}

// Alive reports whether userID has an unexpired liveness record.
func (t *Tracker) Alive(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline, ok := t.expires[userID]
	return ok && !deadline.Before(time.Now())
}

// Run sweeps expired records on a fixed interval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

func (t *Tracker) sweep(now time.Time) {
	t.mu.Lock()
	var expired []int64
	for id, deadline := range t.expires {
		if deadline.Before(now) {
			delete(t.expires, id)
			expired = append(expired, id)
		}
	}
	t.mu.Unlock()

	for _, id := range expired {
		t.log.Printf("liveness: user %d expired, dropping channel", id)
		t.channels.Remove(id)
	}
}
