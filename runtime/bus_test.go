package runtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"chat-gateway/errors"
)

// memStore is an in-memory HistorySource so bus tests run without a
// database.
type memStore struct {
	mu       sync.Mutex
	nextID   uint64
	byRoom   map[domain.RoomName][]domain.Message
	failNext bool
}

func newMemStore() *memStore {
	return &memStore{byRoom: make(map[domain.RoomName][]domain.Message)}
}

func (s *memStore) Append(room domain.RoomName, sender domain.Identity, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return domain.Message{}, errors.ErrStoreUnavailable
	}
	s.nextID++
	msg := domain.Message{
		ID:             s.nextID,
		Room:           room,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
	}
	s.byRoom[room] = append(s.byRoom[room], msg)
	return msg, nil
}

func (s *memStore) Recent(room domain.RoomName, k int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.byRoom[room]
	if k <= 0 || len(log) == 0 {
		return nil, nil
	}
	if len(log) > k {
		log = log[len(log)-k:]
	}
	out := make([]domain.Message, len(log))
	copy(out, log)
	return out, nil
}

// stubSink records everything delivered to it.
type stubSink struct {
	mu     sync.Mutex
	events []event.ServerEvent
}

func (s *stubSink) Deliver(e event.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *stubSink) all() []event.ServerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.ServerEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *stubSink) messages() []event.Message {
	var out []event.Message
	for _, e := range s.all() {
		if m, ok := e.(event.Message); ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *stubSink) notifications() []event.Notification {
	var out []event.Notification
	for _, e := range s.all() {
		if n, ok := e.(event.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

// deadSink refuses every delivery, simulating a stalled peer.
type deadSink struct{}

func (deadSink) Deliver(event.ServerEvent) error { return errors.ErrDeliveryFailure }

func newTestSession(username string) *domain.Session {
	return &domain.Session{
		ID:       uuid.NewString(),
		Identity: domain.Identity{ID: "id-" + username, Username: username},
	}
}

func TestBus_JoinReplaysOnlyToJoiner(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	// Given an existing member and two stored messages
	resident := newTestSession("alice")
	residentSink := &stubSink{}
	_, err := bus.Join(resident, residentSink, "general")
	req.NoError(err)
	_, err = bus.Post("general", resident.Identity, "first")
	req.NoError(err)
	_, err = bus.Post("general", resident.Identity, "second")
	req.NoError(err)

	// When a second session joins
	joiner := newTestSession("bob")
	joinerSink := &stubSink{}
	replay, err := bus.Join(joiner, joinerSink, "general")
	req.NoError(err)

	// Then the replay holds both messages oldest first
	req.Len(replay, 2)
	req.Equal("first", replay[0].Content)
	req.Equal("second", replay[1].Content)

	// And the resident got a join notification but no replay copies
	req.Empty(joinerSink.all())
	notes := residentSink.notifications()
	req.Len(notes, 1)
	req.Equal("bob has joined the chat.", notes[0].Text)
	req.Len(residentSink.messages(), 2)

	req.Equal(2, bus.Members("general"))
}

func TestBus_RejoinSameRoomOnlyReplays(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	alice := newTestSession("alice")
	aliceSink := &stubSink{}
	_, err := bus.Join(alice, aliceSink, "general")
	req.NoError(err)
	_, err = bus.Post("general", alice.Identity, "hello")
	req.NoError(err)

	bob := newTestSession("bob")
	bobSink := &stubSink{}
	_, err = bus.Join(bob, bobSink, "general")
	req.NoError(err)

	// When alice joins the same room again
	replay, err := bus.Join(alice, aliceSink, "general")
	req.NoError(err)

	// Then she gets the replay but nobody is notified
	req.Len(replay, 1)
	req.Empty(bobSink.notifications())
	req.Equal(2, bus.Members("general"))
}

func TestBus_SwitchingRoomsKeepsSingleMembership(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	alice := newTestSession("alice")
	aliceSink := &stubSink{}
	_, err := bus.Join(alice, aliceSink, "general")
	req.NoError(err)

	watcher := newTestSession("bob")
	watcherSink := &stubSink{}
	_, err = bus.Join(watcher, watcherSink, "general")
	req.NoError(err)

	// When alice switches rooms
	_, err = bus.Join(alice, aliceSink, "random")
	req.NoError(err)

	// Then she is a member of exactly the new room
	req.Equal(1, bus.Members("general"))
	req.Equal(1, bus.Members("random"))
	room, ok := bus.CurrentRoom(alice.ID)
	req.True(ok)
	req.Equal(domain.RoomName("random"), room)

	// And the old room saw her leave
	notes := watcherSink.notifications()
	req.Len(notes, 1)
	req.Equal("alice has left the chat.", notes[0].Text)

	// And messages in the old room no longer reach her
	_, err = bus.Post("general", watcher.Identity, "still here?")
	req.NoError(err)
	req.Empty(aliceSink.messages())
}

func TestBus_LeaveNotifiesAndIsIdempotent(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	alice := newTestSession("alice")
	_, err := bus.Join(alice, &stubSink{}, "general")
	req.NoError(err)

	bob := newTestSession("bob")
	bobSink := &stubSink{}
	_, err = bus.Join(bob, bobSink, "general")
	req.NoError(err)

	// When alice leaves twice
	bus.Leave(alice)
	bus.Leave(alice)

	// Then bob saw exactly one leave notification
	notes := bobSink.notifications()
	req.Len(notes, 1)
	req.Equal("alice has left the chat.", notes[0].Text)
	req.Equal(1, bus.Members("general"))

	// And leaving while roomless is a no-op
	idle := newTestSession("carol")
	bus.Leave(idle)
	req.Len(bobSink.notifications(), 1)
}

func TestBus_PostFailureBroadcastsNothing(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	alice := newTestSession("alice")
	aliceSink := &stubSink{}
	_, err := bus.Join(alice, aliceSink, "general")
	req.NoError(err)

	// Given the store rejects the next append
	store.failNext = true

	// When alice posts
	_, err = bus.Post("general", alice.Identity, "lost")
	req.ErrorIs(err, errors.ErrStoreUnavailable)

	// Then nothing reached the room and nothing was stored
	req.Empty(aliceSink.messages())
	recent, err := store.Recent("general", 10)
	req.NoError(err)
	req.Empty(recent)
}

func TestBus_DeadSinkDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	dead := newTestSession("dead")
	_, err := bus.Join(dead, deadSink{}, "general")
	req.NoError(err)

	alive := newTestSession("alive")
	aliveSink := &stubSink{}
	_, err = bus.Join(alive, aliveSink, "general")
	req.NoError(err)

	_, err = bus.Post("general", alive.Identity, "hello")
	req.NoError(err)

	// The healthy member still got the message
	req.Len(aliveSink.messages(), 1)
}

func TestBus_BroadcastOrderMatchesAppendOrder(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	observer := newTestSession("observer")
	observerSink := &stubSink{}
	_, err := bus.Join(observer, observerSink, "general")
	req.NoError(err)

	// When two senders post concurrently
	const perSender = 50
	var wg sync.WaitGroup
	for _, name := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sender := domain.Identity{ID: "id-" + name, Username: name}
			for i := 0; i < perSender; i++ {
				_, err := bus.Post("general", sender, fmt.Sprintf("%s-%d", name, i))
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(name)
	}
	wg.Wait()

	// Then the observer saw every message in exactly append order
	delivered := observerSink.messages()
	req.Len(delivered, 2*perSender)

	stored, err := store.Recent("general", 2*perSender)
	req.NoError(err)
	req.Len(stored, 2*perSender)
	for i, m := range stored {
		req.Equal(m.Content, delivered[i].Content, "position %d", i)
	}
}

func TestBus_TapsSeeEveryAppend(t *testing.T) {
	req := require.New(t)
	store := newMemStore()
	bus := NewBus(testLog, store, 50)

	var mu sync.Mutex
	var tapped []domain.Message
	bus.AddTap(tapFunc(func(m domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		tapped = append(tapped, m)
	}))

	alice := newTestSession("alice")
	_, err := bus.Join(alice, &stubSink{}, "general")
	req.NoError(err)

	_, err = bus.Post("general", alice.Identity, "one")
	req.NoError(err)
	_, err = bus.Post("general", alice.Identity, "two")
	req.NoError(err)

	mu.Lock()
	defer mu.Unlock()
	req.Len(tapped, 2)
	req.Equal("one", tapped[0].Content)
	req.Equal("two", tapped[1].Content)
}

type tapFunc func(domain.Message)

func (f tapFunc) Consume(m domain.Message) { f(m) }
