package events

import (
	"github.com/tchen/chat-notify/internal/types"
)

// Event is the closed set of notifications delivered over a user's event
// stream. Each variant maps to a fixed wire name used as the SSE event field.
// An event is allocated once per notification and shared by pointer across
// every recipient, so implementations must never mutate it after construction.
type Event interface {
	// EventName returns the stable wire discriminant for this event.
	EventName() string

	isEvent()
}

// NewChat is emitted when a chat is created. Its payload is the new chat row.
type NewChat struct {
	*types.Chat
}

// AddedToChat is emitted for any update to a chat row. A rename and a
// membership change produce the same event kind; recipients get the
// post-change snapshot either way.
type AddedToChat struct {
	*types.Chat
}

// RemovedFromChat is emitted when a chat is deleted. Its payload is the
// pre-delete snapshot.
type RemovedFromChat struct {
	*types.Chat
}

// NewMessage is emitted when a message is inserted.
type NewMessage struct {
	*types.Message
}

// Heartbeat is the application-level keep-alive emitted on every open stream
// at a fixed interval. It has no payload and no recipients of its own.
type Heartbeat struct{}

func (NewChat) EventName() string         { return "NewChat" }
func (AddedToChat) EventName() string     { return "AddedToChat" }
func (RemovedFromChat) EventName() string { return "RemovedFromChat" }
func (NewMessage) EventName() string      { return "NewMessage" }
func (Heartbeat) EventName() string       { return "Heartbeat" }

func (NewChat) isEvent()         {}
func (AddedToChat) isEvent()     {}
func (RemovedFromChat) isEvent() {}
func (NewMessage) isEvent()      {}
func (Heartbeat) isEvent()       {}
