package models

import "time"

// MessageOrigin tells who produced a chat message.
// Valid values: "user", "remote", "system".
type MessageOrigin string

const (
	OriginUser   MessageOrigin = "user"
	OriginRemote MessageOrigin = "remote"
	OriginSystem MessageOrigin = "system"
)

// ChatMessage is one entry in the append-only message sequence shown on
// the chat screen. IDs are client-generated and used as display keys
// only; they are never matched against server-assigned ids.
type ChatMessage struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Origin    MessageOrigin `json:"origin"`
	Timestamp time.Time     `json:"timestamp"`
}

// Wire envelope types for the chat WebSocket.
const (
	EventTypeConnection = "connection"
	EventTypeMessage    = "message"
)

// Sender types carried by "message" events.
const (
	SenderAdmin = "admin"
	SenderUser  = "user"
)

// ServerEvent is the inbound WebSocket envelope. "connection" arrives
// once after a successful handshake and carries the server-assigned
// chat id; "message" carries a chat message from either side.
type ServerEvent struct {
	Type       string `json:"type"`
	ChatID     string `json:"chat_id,omitempty"`
	SenderType string `json:"sender_type,omitempty"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// Time parses the event timestamp, falling back to the local clock when
// the server sent none or an unparseable one.
func (e *ServerEvent) Time() time.Time {
	if e.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			return t
		}
	}
	return time.Now()
}

// OutboundMessage is the only outbound WebSocket payload: a user text
// message. No type field is needed.
type OutboundMessage struct {
	Message string `json:"message"`
}
