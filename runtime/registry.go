// Package runtime owns the gateway's shared mutable state: the
// connection registry and the room broadcast bus. Everything here is
// safe for concurrent use by the per-connection goroutines.
package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"chat-gateway/domain"
	"chat-gateway/errors"
)

// Registry is the exclusive owner of the sessionID -> Session mapping.
// Session.Room is only ever mutated here, under the registry lock, so
// a session's own state and the bus membership can never disagree for
// long: every mutation path goes through SetRoom or Remove.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]*domain.Session
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:      log,
		sessions: make(map[string]*domain.Session),
	}
}

// Register creates the session entry for a freshly authenticated
// connection. A duplicate id means the transport misbehaved; the caller
// must drop the new connection without touching the existing session.
func (r *Registry) Register(id string, identity domain.Identity) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrDuplicateSession, id)
	}
	session := &domain.Session{ID: id, Identity: identity}
	r.sessions[id] = session
	return session, nil
}

// SetRoom records the session's current room; a no-op when unchanged.
// Racing against a concurrent disconnect is expected: the
// unknown-session error is benign for the caller, never a crash.
func (r *Registry) SetRoom(id string, room domain.RoomName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrUnknownSession, id)
	}
	if session.Room == room {
		return nil
	}
	session.Room = room
	return nil
}

// Room returns the session's current room, if the session is still
// registered.
func (r *Registry) Room(id string) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.NoRoom, false
	}
	return session.Room, true
}

// Remove deletes the session entry. Idempotent: it returns the removed
// session so the caller can notify the room it was in, or nil when the
// session was already gone.
func (r *Registry) Remove(id string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return session
}

// Len reports how many sessions are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
