// Package metrics provides Prometheus instrumentation for the notify server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveStreams tracks the current number of open event streams.
	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notify_active_streams",
		Help: "Current number of open event stream connections",
	})

	// RegistryUsers tracks the current number of users with a delivery channel.
	RegistryUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notify_registry_users",
		Help: "Current number of users with an installed delivery channel",
	})

	// NotificationsTotal counts change notifications consumed from the change
	// source, labeled by channel and outcome: "ok", "malformed" or
	// "unknown_channel".
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_notifications_total",
		Help: "Total number of change notifications consumed",
	}, []string{"channel", "status"})

	// EventsPublishedTotal counts per-recipient event deliveries into the
	// registry.
	EventsPublishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_events_published_total",
		Help: "Total number of per-recipient event publishes",
	})

	// EventsDroppedTotal counts events discarded because a subscriber's
	// buffer was full.
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_events_dropped_total",
		Help: "Total number of events dropped for slow subscribers",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveStreams,
		RegistryUsers,
		NotificationsTotal,
		EventsPublishedTotal,
		EventsDroppedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
