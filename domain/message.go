// Package domain contains the core concepts of the chat gateway.
// Messages are immutable once appended; ordering is by (timestamp, id)
// with the store-assigned id as tie-break.
package domain

import "time"

// Message is one durably appended chat event. ID is assigned by the
// message store from a global monotonic sequence; At is the server
// clock, forced non-decreasing across appends.
type Message struct {
	ID             uint64
	Room           RoomName
	SenderID       string
	SenderUsername string
	Content        string
	Lang           string
	At             time.Time
}
