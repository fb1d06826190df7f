package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/metrics"
)

var heartbeatEvent = &events.Heartbeat{}

func (s *NotifyApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("failed to write response: %v", err)
	}
}

// events streams the caller's change notifications as server-sent events.
// The stream is infinite and not restartable: a dropped connection requires
// a fresh subscription, with no replay of missed events.
func (s *NotifyApp) events(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errResp := NewInternalServerError(errors.New("streaming unsupported"))
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sub := s.registry.Subscribe(userId)
	defer sub.Cancel()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.log.Printf("user %d subscribed to event stream", userId)
	defer s.log.Printf("user %d event stream closed", userId)

	heartbeat := time.NewTicker(s.heartbeatInterval)
	defer heartbeat.Stop()
	keepAlive := time.NewTicker(s.keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				// Channel evicted by the liveness sweeper. The client
				// reconnects, which recreates the registry entry.
				return
			}
			if err := writeEvent(w, ev); err != nil {
				s.log.Printf("user %d: write event: %v", userId, err)
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if err := writeEvent(w, heartbeatEvent); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive-text\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent renders one SSE frame: an event line carrying the discriminant
// and a data line carrying the serialized payload.
func writeEvent(w io.Writer, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serialize %s event: %w", ev.EventName(), err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.EventName(), data)
	return err
}

// alive refreshes the caller's liveness TTL. No body; side effect only.
func (s *NotifyApp) alive(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.tracker.Heartbeat(userId)
	w.WriteHeader(http.StatusNoContent)
}

func (s *NotifyApp) health(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status  string `json:"status"`
		Streams int    `json:"channels"`
	}{
		Status:  "ok",
		Streams: s.registry.Len(),
	}

	s.writeJson(w, http.StatusOK, resp)
}
