package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/liveness"
	"github.com/tchen/chat-notify/internal/registry"
	"github.com/tchen/chat-notify/internal/testutil"
	"github.com/tchen/chat-notify/internal/types"
)

func newTestNotifyApp(t *testing.T) *NotifyApp {
	logger := testutil.TestLogger(t)
	reg := registry.NewRegistry(logger, 0)

	return &NotifyApp{
		log:               logger,
		registry:          reg,
		tracker:           liveness.NewTracker(logger, reg, 5*time.Second, time.Second),
		signingKey:        testSigningKey,
		heartbeatInterval: 25 * time.Millisecond,
		keepAliveInterval: 25 * time.Millisecond,
	}
}

func TestAlive(t *testing.T) {
	app := newTestNotifyApp(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/alive", nil)
	req = req.WithContext(WithUserId(req.Context(), 3))

	app.alive(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String(), "expected no response body")
	assert.True(t, app.tracker.Alive(3), "expected the liveness TTL to be refreshed")
}

func TestAlive_NoAuthenticatedUser(t *testing.T) {
	app := newTestNotifyApp(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/alive", nil)

	app.alive(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEvents_Unauthenticated(t *testing.T) {
	app := newTestNotifyApp(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)

	app.authMiddleware(app.events)(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 0, app.registry.Len(), "expected no channel work for a rejected caller")
}

func TestEvents_StreamsPublishedEvents(t *testing.T) {
	app := newTestNotifyApp(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(WithUserId(req.Context(), 7))
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		app.events(rr, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return app.registry.Len() == 1
	}, time.Second, 5*time.Millisecond, "expected the stream to subscribe")

	app.registry.Publish(7, &events.NewChat{Chat: &types.Chat{
		Id:      42,
		WsId:    1,
		Name:    "general",
		Type:    types.ChatTypeGroup,
		Members: []int64{7},
	}})

	// Evicting the channel ends the stream; buffered events are delivered
	// first.
	app.registry.Remove(7)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the stream to end")
	}

	body := rr.Body.String()
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: NewChat\n")
	assert.Contains(t, body, `"id":42`)
}

func TestEvents_EmitsHeartbeatAndKeepAlive(t *testing.T) {
	app := newTestNotifyApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(WithUserId(ctx, 2))
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		app.events(rr, req)
		close(done)
	}()

	// Long enough for at least one heartbeat and one keep-alive tick.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the stream to end")
	}

	body := rr.Body.String()
	assert.Contains(t, body, "event: Heartbeat\ndata: {}\n\n")
	assert.Contains(t, body, ": keep-alive-text\n\n")
}

func TestEvents_DisconnectKeepsRegistryEntry(t *testing.T) {
	app := newTestNotifyApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(WithUserId(ctx, 4))
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		app.events(rr, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return app.registry.Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// Only the liveness sweeper removes entries; other devices of the same
	// user may still hold receivers.
	assert.Equal(t, 1, app.registry.Len())
}

func TestWriteEvent(t *testing.T) {
	var sb strings.Builder

	err := writeEvent(&sb, &events.NewMessage{Message: &types.Message{
		Id:       10,
		ChatId:   1,
		SenderId: 2,
		Content:  "hello",
	}})
	require.NoError(t, err)

	frame := sb.String()
	assert.True(t, strings.HasPrefix(frame, "event: NewMessage\ndata: "), "unexpected frame: %q", frame)
	assert.True(t, strings.HasSuffix(frame, "\n\n"), "expected a blank line terminator")
	assert.Contains(t, frame, `"content":"hello"`)
}

func TestHealth(t *testing.T) {
	app := newTestNotifyApp(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	app.health(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok", "channels": 0}`, rr.Body.String())
}
