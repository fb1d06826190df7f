package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tchen/chat-notify/internal/types"
)

// Names of the notification channels the change source emits on. The listener
// subscribes to exactly this set; a notification on any other channel is a
// programming error, not a malformed payload.
const (
	ChatUpdatedChannel        = "chat_updated"
	ChatMessageCreatedChannel = "chat_message_created"
)

// ErrUnknownChannel reports a notification on a channel Decode does not
// recognize. Unlike a parse failure it is not recoverable by skipping the
// payload, so callers can distinguish it with errors.Is.
var ErrUnknownChannel = errors.New("unknown notification channel")

// Notification is a decoded change notification: one event plus the set of
// users it must be delivered to.
type Notification struct {
	Recipients []int64
	Event      Event
}

// chatUpdated matches the trigger payload
// json_build_object('op', TG_OP, 'old', OLD, 'new', NEW).
type chatUpdated struct {
	Op  string      `json:"op"`
	Old *types.Chat `json:"old"`
	New *types.Chat `json:"new"`
}

type chatMessageCreated struct {
	Chat    *types.Chat    `json:"chat"`
	Message *types.Message `json:"message"`
}

// Decode turns a raw (channel, payload) pair from the change source into a
// typed notification.
func Decode(channel string, payload []byte) (*Notification, error) {
	switch channel {
	case ChatUpdatedChannel:
		return decodeChatUpdated(payload)
	case ChatMessageCreatedChannel:
		return decodeChatMessageCreated(payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

func decodeChatUpdated(payload []byte) (*Notification, error) {
	var cu chatUpdated
	if err := json.Unmarshal(payload, &cu); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", ChatUpdatedChannel, err)
	}

	var ev Event
	switch cu.Op {
	case "INSERT":
		if cu.New == nil {
			return nil, fmt.Errorf("%s: insert without new row", ChatUpdatedChannel)
		}
		ev = &NewChat{Chat: cu.New}
	case "UPDATE":
		if cu.New == nil {
			return nil, fmt.Errorf("%s: update without new row", ChatUpdatedChannel)
		}
		ev = &AddedToChat{Chat: cu.New}
	case "DELETE":
		if cu.Old == nil {
			return nil, fmt.Errorf("%s: delete without old row", ChatUpdatedChannel)
		}
		ev = &RemovedFromChat{Chat: cu.Old}
	default:
		return nil, fmt.Errorf("%s: unsupported op %q", ChatUpdatedChannel, cu.Op)
	}

	return &Notification{
		Recipients: Affected(cu.Old, cu.New),
		Event:      ev,
	}, nil
}

func decodeChatMessageCreated(payload []byte) (*Notification, error) {
	var mc chatMessageCreated
	if err := json.Unmarshal(payload, &mc); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", ChatMessageCreatedChannel, err)
	}

	if mc.Chat == nil || mc.Message == nil {
		return nil, fmt.Errorf("%s: payload missing chat or message", ChatMessageCreatedChannel)
	}

	// The sender is a chat member, so they receive their own message event.
	return &Notification{
		Recipients: slices.Clone(mc.Chat.Members),
		Event:      &NewMessage{Message: mc.Message},
	}, nil
}
