// Package event defines the server-to-client events the gateway fans
// out to room members. Events marshal directly onto the wire as JSON.
package event

import (
	"time"

	"chat-gateway/domain"
)

// ServerEvent is anything the gateway pushes to a session.
type ServerEvent interface {
	EventType() string
}

const (
	TypeMessage       = "message"
	TypeNotification  = "notification"
	TypeHistory       = "history"
	TypeSearchResults = "search_results"
	TypeError         = "error"
)

// Message is a chat message after its durable append.
type Message struct {
	Type     string    `json:"type"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
	Lang     string    `json:"lang,omitempty"`
	At       time.Time `json:"at"`
}

func (m Message) EventType() string { return TypeMessage }

func FromMessage(m domain.Message) Message {
	return Message{
		Type:     TypeMessage,
		Username: m.SenderUsername,
		Content:  m.Content,
		Lang:     m.Lang,
		At:       m.At,
	}
}

// Notification carries join/leave announcements.
type Notification struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n Notification) EventType() string { return TypeNotification }

func NewNotification(text string) Notification {
	return Notification{Type: TypeNotification, Text: text}
}

// History is the join-time replay, delivered once, only to the joining
// session. Messages are ordered oldest to newest.
type History struct {
	Type     string    `json:"type"`
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

func (h History) EventType() string { return TypeHistory }

func NewHistory(room domain.RoomName, messages []domain.Message) History {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return History{Type: TypeHistory, Room: string(room), Messages: out}
}

// SearchResults answers an in-room /find command, delivered only to the
// session that issued it.
type SearchResults struct {
	Type     string    `json:"type"`
	Query    string    `json:"query"`
	Messages []Message `json:"messages"`
}

func (s SearchResults) EventType() string { return TypeSearchResults }

// Error reports an operation failure back to the session that caused
// it, a dropped append included.
type Error struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (e Error) EventType() string { return TypeError }

func NewError(text string) Error {
	return Error{Type: TypeError, Text: text}
}
