package listener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/metrics"
)

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = 30 * time.Second

	// pingInterval bounds how long a silently dead connection goes
	// unnoticed when no notifications are flowing.
	pingInterval = 90 * time.Second
)

// Publisher delivers a decoded event to one recipient's channel.
type Publisher interface {
	Publish(userID int64, e events.Event)
}

// Listener consumes the change-notification stream from Postgres and fans
// decoded events out through the publisher. Exactly one listener runs per
// process. Reconnects use pq's built-in exponential backoff; the LISTEN set
// is re-established automatically after a reconnect.
type Listener struct {
	log *log.Logger
	pub Publisher
	pl  *pq.Listener
}

// NewListener connects to the change source and registers interest in the
// chat and message channels.
func NewListener(logger *log.Logger, dsn string, pub Publisher) (*Listener, error) {
	pl := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnectionAttemptFailed:
				logger.Printf("listener: connection attempt failed: %v", err)
			case pq.ListenerEventDisconnected:
				logger.Printf("listener: disconnected: %v", err)
			case pq.ListenerEventReconnected:
				logger.Println("listener: reconnected")
			}
		})

	for _, channel := range []string{events.ChatUpdatedChannel, events.ChatMessageCreatedChannel} {
		if err := pl.Listen(channel); err != nil {
			pl.Close()
			return nil, fmt.Errorf("listen %q: %w", channel, err)
		}
	}

	return &Listener{log: logger, pub: pub, pl: pl}, nil
}

// Run consumes notifications until ctx is cancelled. Notifications are
// processed strictly in receipt order; a single bad payload never terminates
// the loop.
func (l *Listener) Run(ctx context.Context) {
	defer l.pl.Close()

	l.log.Println("listener: consuming change notifications")

	for {
		select {
		case <-ctx.Done():
			l.log.Println("listener: stopping")
			return
		case n := <-l.pl.Notify:
			// A nil notification is a post-reconnect wakeup. Events
			// emitted while disconnected are gone; that matches the
			// lossy delivery contract.
			if n == nil {
				continue
			}
			l.handle(n.Channel, []byte(n.Extra))
		case <-time.After(pingInterval):
			go func() {
				if err := l.pl.Ping(); err != nil {
					l.log.Printf("listener: ping failed: %v", err)
				}
			}()
		}
	}
}

func (l *Listener) handle(channel string, payload []byte) {
	n, err := events.Decode(channel, payload)
	if err != nil {
		if errors.Is(err, events.ErrUnknownChannel) {
			// The LISTEN set is fixed, so this is a defect, not bad data.
			l.log.Printf("listener: BUG: notification on unregistered channel: %v", err)
			metrics.NotificationsTotal.WithLabelValues(channel, "unknown_channel").Inc()
			return
		}

		l.log.Printf("listener: dropping notification on %q: %v", channel, err)
		metrics.NotificationsTotal.WithLabelValues(channel, "malformed").Inc()
		return
	}

	// One event allocation, shared by every recipient. Publishes to
	// different users' channels carry no ordering relationship.
	for _, userID := range n.Recipients {
		l.pub.Publish(userID, n.Event)
	}
	metrics.NotificationsTotal.WithLabelValues(channel, "ok").Inc()
}
