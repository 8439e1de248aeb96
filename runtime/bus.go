package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/domain/event"
)

// HistorySource is the slice of the message store the bus needs:
// durable appends and the recent window for join-time replay.
type HistorySource interface {
	Append(room domain.RoomName, sender domain.Identity, content string) (domain.Message, error)
	Recent(room domain.RoomName, k int) ([]domain.Message, error)
}

type member struct {
	id       string
	username string
	sink     contract.EventSink
}

// Bus tracks which sessions belong to which room and fans events out to
// the members. Membership is in-memory only and rebuilt by reconnecting
// sessions after a restart.
//
// Two locks with distinct jobs: mu guards the membership maps, and one
// order mutex per room linearizes Join and Post so that fan-out order
// equals append order and a join-time replay never overlaps a live
// delivery. Lock order is always order -> mu, never the reverse.
type Bus struct {
	log          *slog.Logger
	store        HistorySource
	historyDepth int

	mu      sync.RWMutex
	rooms   map[domain.RoomName]map[string]member
	current map[string]domain.RoomName
	order   map[domain.RoomName]*sync.Mutex

	taps []contract.MessageTap
}

func NewBus(log *slog.Logger, store HistorySource, historyDepth int) *Bus {
	return &Bus{
		log:          log,
		store:        store,
		historyDepth: historyDepth,
		rooms:        make(map[domain.RoomName]map[string]member),
		current:      make(map[string]domain.RoomName),
		order:        make(map[domain.RoomName]*sync.Mutex),
	}
}

// AddTap registers observers of appended messages. Call before serving;
// taps are not guarded against concurrent registration.
func (b *Bus) AddTap(taps ...contract.MessageTap) {
	b.taps = append(b.taps, taps...)
}

func (b *Bus) roomOrder(room domain.RoomName) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.order[room]
	if !ok {
		m = &sync.Mutex{}
		b.order[room] = m
	}
	return m
}

// Join admits the session to room, atomically leaving any previous room
// first: a session is never a member of two rooms. The remaining
// members of the previous room and the existing members of the new one
// are notified; the returned replay slice (last historyDepth messages,
// oldest to newest) is for the joining session only — the caller must
// not broadcast it.
//
// Holding the room's order mutex across the membership flip and the
// history read means no Post can interleave, so a message is either in
// the replay or delivered live, never both, never neither.
func (b *Bus) Join(session *domain.Session, sink contract.EventSink, room domain.RoomName) ([]domain.Message, error) {
	ord := b.roomOrder(room)
	ord.Lock()
	defer ord.Unlock()

	b.mu.Lock()
	prev, hadPrev := b.current[session.ID]
	if hadPrev && prev == room {
		// Re-join of the same room: replay again, nobody to notify.
		b.mu.Unlock()
		return b.store.Recent(room, b.historyDepth)
	}
	if hadPrev {
		b.dropMember(prev, session.ID)
	}
	if _, ok := b.rooms[room]; !ok {
		b.rooms[room] = make(map[string]member)
	}
	b.rooms[room][session.ID] = member{id: session.ID, username: session.Identity.Username, sink: sink}
	b.current[session.ID] = room
	b.mu.Unlock()

	if hadPrev {
		b.Broadcast(prev, event.NewNotification(fmt.Sprintf("%s has left the chat.", session.Identity.Username)))
	}
	b.broadcastExcept(room, session.ID, event.NewNotification(fmt.Sprintf("%s has joined the chat.", session.Identity.Username)))

	return b.store.Recent(room, b.historyDepth)
}

// Leave removes the session from whatever room it is in and notifies
// the remaining members. Safe to call on a roomless session and safe to
// call twice; disconnect paths rely on that.
func (b *Bus) Leave(session *domain.Session) {
	b.mu.Lock()
	room, ok := b.current[session.ID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.current, session.ID)
	b.dropMember(room, session.ID)
	b.mu.Unlock()

	b.Broadcast(room, event.NewNotification(fmt.Sprintf("%s has left the chat.", session.Identity.Username)))
}

// dropMember removes one session from a room set. Caller holds mu.
func (b *Bus) dropMember(room domain.RoomName, sessionID string) {
	members, ok := b.rooms[room]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(b.rooms, room)
	}
}

// Post appends the message durably, then fans it out to the room. Both
// steps run under the room's order mutex, so every member observes
// messages in exactly append order even when many senders post
// concurrently. On a store failure nothing is broadcast: durability
// precedes visibility.
func (b *Bus) Post(room domain.RoomName, sender domain.Identity, content string) (domain.Message, error) {
	ord := b.roomOrder(room)
	ord.Lock()
	defer ord.Unlock()

	msg, err := b.store.Append(room, sender, content)
	if err != nil {
		return domain.Message{}, err
	}
	b.Broadcast(room, event.FromMessage(msg))
	for _, tap := range b.taps {
		tap.Consume(msg)
	}
	return msg, nil
}

// Broadcast delivers the event to every current member of the room.
// Delivery is best effort and independent per recipient: a dead
// transport is logged and skipped, its own disconnect path does the
// cleanup, and the broadcaster never sees an error.
func (b *Bus) Broadcast(room domain.RoomName, e event.ServerEvent) {
	b.broadcastExcept(room, "", e)
}

func (b *Bus) broadcastExcept(room domain.RoomName, exceptID string, e event.ServerEvent) {
	b.mu.RLock()
	recipients := make([]member, 0, len(b.rooms[room]))
	for id, m := range b.rooms[room] {
		if id == exceptID {
			continue
		}
		recipients = append(recipients, m)
	}
	b.mu.RUnlock()

	for _, rec := range recipients {
		if err := rec.sink.Deliver(e); err != nil {
			b.log.Debug("Dropping delivery to dead session",
				"session", rec.id, "room", string(room), "err", err)
		}
	}
}

// Members reports the current member count of a room.
func (b *Bus) Members(room domain.RoomName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

// CurrentRoom reports which room the session is a member of, if any.
func (b *Bus) CurrentRoom(sessionID string) (domain.RoomName, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	room, ok := b.current[sessionID]
	return room, ok
}
