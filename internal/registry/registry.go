package registry

import (
	"log"
	"sync"

	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/metrics"
)

// DefaultChannelBuffer is the per-subscription event buffer capacity used
// when no explicit capacity is configured.
const DefaultChannelBuffer = 100

// Registry maps each user id to the broadcast channel their events are
// delivered on. It is constructed once in main and shared by reference
// between the change listener, the liveness tracker and every stream session.
type Registry struct {
	log    *log.Logger
	buffer int

	mu    sync.RWMutex
	users map[int64]*Broadcaster
}

func NewRegistry(logger *log.Logger, buffer int) *Registry {
	if buffer <= 0 {
		buffer = DefaultChannelBuffer
	}

	return &Registry{
		log:    logger,
		buffer: buffer,
		users:  make(map[int64]*Broadcaster),
	}
}

// GetOrCreate returns the broadcaster for userID, installing one if absent.
// Lookup and install happen under a single critical section, so concurrent
// callers for a never-seen user always converge on the same broadcaster.
func (r *Registry) GetOrCreate(userID int64) *Broadcaster {
	r.mu.RLock()
	b, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.users[userID]; ok {
		return b
	}

	b = newBroadcaster(r.buffer)
	r.users[userID] = b
	metrics.RegistryUsers.Set(float64(len(r.users)))

	r.log.Printf("registry: created channel for user %d", userID)
	return b
}

// Subscribe attaches a new receiver to userID's broadcaster, creating the
// broadcaster first if the user has never been seen.
func (r *Registry) Subscribe(userID int64) *Subscription {
	return r.GetOrCreate(userID).Subscribe()
}

// Publish delivers an event to userID without blocking. A notification may
// arrive before any client has connected; the channel is still created so a
// later subscribe does not race the publish, though the event itself is lost
// if no receiver existed yet.
func (r *Registry) Publish(userID int64, e events.Event) {
	r.GetOrCreate(userID).Publish(e)
	metrics.EventsPublishedTotal.Inc()
}

// Remove evicts userID's broadcaster, ending the stream of every attached
// subscription. It is called only by the liveness sweeper; client disconnects
// never remove entries.
func (r *Registry) Remove(userID int64) {
	r.mu.Lock()
	b, ok := r.users[userID]
	delete(r.users, userID)
	metrics.RegistryUsers.Set(float64(len(r.users)))
	r.mu.Unlock()

	if ok {
		b.close()
		r.log.Printf("registry: removed channel for user %d", userID)
	}
}

// Len returns the number of users with an installed channel.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
