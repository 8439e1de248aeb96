package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"chat-gateway/errors"
	"chat-gateway/search"
)

var _ contract.EventSink = (*session)(nil)

// session is one live websocket connection. The read pump is the only
// goroutine acting on inbound frames; the write pump is the only one
// writing to the socket. Everything in between goes through the send
// channel, so the socket never sees concurrent writes.
type session struct {
	gw   *Gateway
	conn *websocket.Conn
	s    *domain.Session

	send chan []byte
	done chan struct{}

	// mu serializes the join sequence (bus membership + registry room)
	// against the teardown sequence. Teardown can fire from the write
	// pump while a join is in flight on the read pump; without the lock
	// that interleaving can delete the registry entry yet leave the
	// session in the room's membership set forever.
	mu        sync.Mutex
	closeOnce sync.Once
}

func newSession(gw *Gateway, conn *websocket.Conn, s *domain.Session) *session {
	return &session{
		gw:   gw,
		conn: conn,
		s:    s,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Deliver queues the event for the write pump without ever blocking the
// broadcaster. A full queue means the peer stopped draining; the
// session tears itself down and reports the failure so the bus skips
// it. The send channel is never closed: teardown closes done instead,
// which keeps a racing Deliver from panicking.
func (s *session) Deliver(e event.ServerEvent) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return fmt.Errorf("%w: session %s closed", errors.ErrDeliveryFailure, s.s.ID)
	case s.send <- raw:
		return nil
	default:
		s.gw.stats.DeliveryDropped()
		s.gw.log.Warn("Send queue full, closing session", "session", s.s.ID)
		// Asynchronously: Deliver runs on the broadcaster's goroutine,
		// which may already be inside a teardown of its own.
		go s.teardown()
		return fmt.Errorf("%w: session %s send queue full", errors.ErrDeliveryFailure, s.s.ID)
	}
}

// readPump consumes client frames until the connection dies, then runs
// the teardown. Inbound handling is strictly sequential per session.
func (s *session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.gw.log.Debug("Session read failed", "session", s.s.ID, "err", err)
			}
			return
		}
		s.handleFrame(raw)
	}
}

func (s *session) handleFrame(raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.deliverError("malformed frame")
		return
	}

	switch frame.Type {
	case frameJoin:
		s.handleJoin(frame.Room)
	case frameSend:
		s.handleSend(frame.Content)
	default:
		s.deliverError(fmt.Sprintf("unknown frame type %q", frame.Type))
	}
}

// handleJoin moves the session into a room and replays the recent
// window to it. The lock makes the membership flip and the registry
// update one unit against teardown: a join lands either entirely
// before the disconnect (and teardown undoes it) or not at all.
func (s *session) handleJoin(roomName string) {
	if err := validate.Struct(joinFrame{Room: roomName}); err != nil {
		s.deliverError("invalid room name")
		return
	}
	room := domain.RoomName(roomName)
	if !s.gw.joinAnyRoom && !s.gw.catalog.Has(room) {
		s.deliverError(fmt.Sprintf("unknown room %q", roomName))
		return
	}

	s.mu.Lock()
	select {
	case <-s.done:
		// Already torn down, the room must not gain a ghost member.
		s.mu.Unlock()
		return
	default:
	}
	replay, err := s.gw.bus.Join(s.s, s, room)
	if err != nil {
		s.mu.Unlock()
		s.gw.log.Error("Join replay failed",
			"session", s.s.ID, "room", roomName, "err", err)
		s.deliverError("joining the room failed, try again")
		return
	}
	if err := s.gw.registry.SetRoom(s.s.ID, room); err != nil {
		s.gw.log.Error("Recording room failed", "session", s.s.ID, "err", err)
	}
	s.mu.Unlock()

	if err := s.Deliver(event.NewHistory(room, replay)); err != nil {
		s.gw.log.Debug("History replay delivery failed", "session", s.s.ID, "err", err)
	}
}

// handleSend posts a message to the session's current room. A send from
// an idle (roomless) session is dropped without feedback, matching the
// fire-and-forget nature of the frame.
func (s *session) handleSend(content string) {
	if err := validate.Struct(sendFrame{Content: content}); err != nil {
		s.deliverError("empty or oversized message")
		return
	}
	room, ok := s.gw.registry.Room(s.s.ID)
	if !ok || room == domain.NoRoom {
		s.gw.log.Debug("Dropping send from roomless session", "session", s.s.ID)
		return
	}

	if strings.HasPrefix(content, "/find") {
		s.handleFind(room, content)
		return
	}

	if s.gw.moderator != nil {
		content = s.gw.moderator.Sanitize(content)
	}
	if _, err := s.gw.bus.Post(room, s.s.Identity, content); err != nil {
		s.gw.log.Error("Posting message failed",
			"session", s.s.ID, "room", string(room), "err", err)
		s.deliverError("message could not be stored")
	}
}

// handleFind answers an in-room search command; results go only to the
// session that asked.
func (s *session) handleFind(room domain.RoomName, input string) {
	if s.gw.index == nil {
		s.deliverError("search is disabled")
		return
	}
	query := search.ParseCommand(input)
	if query.Terms == "" {
		s.deliverError("usage: /find <terms> [--limit n]")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hits, err := s.gw.index.Search(ctx, room, query.Terms, query.Limit)
	if err != nil {
		s.gw.log.Error("Search command failed",
			"session", s.s.ID, "room", string(room), "err", err)
		s.deliverError("search failed, try again")
		return
	}

	results := event.SearchResults{
		Type:     event.TypeSearchResults,
		Query:    query.Terms,
		Messages: make([]event.Message, 0, len(hits)),
	}
	for _, hit := range hits {
		results.Messages = append(results.Messages, event.Message{
			Type:     event.TypeMessage,
			Username: hit.Username,
			Content:  hit.Content,
			At:       hit.At,
		})
	}
	if err := s.Deliver(results); err != nil {
		s.gw.log.Debug("Search results delivery failed", "session", s.s.ID, "err", err)
	}
}

func (s *session) deliverError(text string) {
	if err := s.Deliver(event.NewError(text)); err != nil {
		s.gw.log.Debug("Error event delivery failed", "session", s.s.ID, "err", err)
	}
}

// writePump drains the send queue onto the socket and keeps the peer
// alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case raw := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				s.teardown()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.teardown()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// teardown runs the disconnect sequence exactly once, whichever path
// gets there first: leave the room (notifying the remaining members),
// drop the registry entry, close the socket. It holds the session lock
// so an in-flight join cannot interleave, and closes done first so a
// join arriving after the teardown observes it and backs off.
func (s *session) teardown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.gw.bus.Leave(s.s)
		s.gw.registry.Remove(s.s.ID)
		s.mu.Unlock()
		s.gw.stats.SessionClosed()
		s.conn.Close()
		s.gw.log.Info("Session closed", "session", s.s.ID, "user", s.s.Identity.ID)
	})
}
