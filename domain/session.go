package domain

// RoomName identifies a room from the external catalog.
type RoomName string

// NoRoom is the room of an idle (authenticated, not joined) session.
const NoRoom RoomName = ""

// Session is one live authenticated transport connection. Exactly one
// Session exists per connection; Room is single-valued and mutated only
// through the registry, under the registry lock.
type Session struct {
	ID       string
	Identity Identity
	Room     RoomName
}
