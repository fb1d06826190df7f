package types

import (
	"time"
)

type ChatType string

const (
	ChatTypeSingle         ChatType = "single"
	ChatTypeGroup          ChatType = "group"
	ChatTypePrivateChannel ChatType = "private_channel"
	ChatTypePublicChannel  ChatType = "public_channel"
)

// User is the authenticated identity carried in a verified session token.
type User struct {
	Id        int64     `json:"id"`
	Fullname  string    `json:"fullname"`
	Email     string    `json:"email"`
	WsId      int64     `json:"ws_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Chat is a point-in-time copy of a chat row as carried in a change
// notification payload, not a live handle to the row.
type Chat struct {
	Id        int64     `json:"id"`
	WsId      int64     `json:"ws_id"`
	Name      string    `json:"name,omitempty"`
	Type      ChatType  `json:"type"`
	Members   []int64   `json:"members"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Message struct {
	Id        int64     `json:"id"`
	ChatId    int64     `json:"chat_id"`
	SenderId  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
