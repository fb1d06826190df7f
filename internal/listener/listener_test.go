package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tchen/chat-notify/internal/events"
	"github.com/tchen/chat-notify/internal/testutil"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(userID int64, e events.Event) {
	m.Called(userID, e)
}

func newTestListener(t *testing.T, pub Publisher) *Listener {
	return &Listener{
		log: testutil.TestLogger(t),
		pub: pub,
	}
}

func TestHandlePublishesToEveryRecipient(t *testing.T) {
	pub := &mockPublisher{}
	l := newTestListener(t, pub)

	var first, second events.Event
	pub.On("Publish", int64(1), mock.Anything).Run(func(args mock.Arguments) {
		first = args.Get(1).(events.Event)
	}).Once()
	pub.On("Publish", int64(2), mock.Anything).Run(func(args mock.Arguments) {
		second = args.Get(1).(events.Event)
	}).Once()

	l.handle(events.ChatMessageCreatedChannel, []byte(`{
		"chat": {"id": 1, "ws_id": 1, "type": "group", "members": [1, 2]},
		"message": {"id": 9, "chat_id": 1, "sender_id": 1, "content": "hi", "files": []}
	}`))

	pub.AssertExpectations(t)
	require.NotNil(t, first)
	assert.Same(t, first, second, "expected one event allocation shared across recipients")
}

func TestHandleMalformedThenValid(t *testing.T) {
	pub := &mockPublisher{}
	l := newTestListener(t, pub)

	// A bad payload is logged and skipped.
	l.handle(events.ChatUpdatedChannel, []byte(`{not json`))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	// The listener keeps processing: the next valid payload goes through.
	pub.On("Publish", int64(1), mock.Anything).Once()
	pub.On("Publish", int64(2), mock.Anything).Once()

	l.handle(events.ChatUpdatedChannel, []byte(`{
		"op": "INSERT",
		"old": null,
		"new": {"id": 1, "ws_id": 1, "type": "group", "members": [1, 2]}
	}`))

	pub.AssertExpectations(t)
}

func TestHandleUnknownChannel(t *testing.T) {
	pub := &mockPublisher{}
	l := newTestListener(t, pub)

	l.handle("workspace_updated", []byte(`{}`))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
