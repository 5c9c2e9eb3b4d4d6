package chat

import "time"

// Outbound frame type tags.
const (
	EventTypeMessage        = "message"
	EventTypePrivateMessage = "private_message"
	EventTypePrivateSent    = "private_sent"
	EventTypeOnlineUsers    = "online_users"
	EventTypeSystem         = "system"
)

// UserRef identifies a user inside outbound frames.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageEvent is a chat message delivered to a scope.
type MessageEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessageEvent is the recipient's view of a direct message.
type PrivateMessageEvent struct {
	Type      string    `json:"type"`
	From      UserRef   `json:"from"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateSentEvent is the sender's own echo of a direct message. It is sent
// regardless of whether the recipient was online.
type PrivateSentEvent struct {
	Type      string    `json:"type"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// OnlineUsersEvent carries the full recomputed presence snapshot for a scope.
// It is never an incremental diff, so a client that missed earlier events can
// apply it as-is.
type OnlineUsersEvent struct {
	Type  string    `json:"type"`
	Users []UserRef `json:"users"`
}

// SystemEvent is a server-originated notice to a scope.
type SystemEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
