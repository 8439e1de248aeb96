package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chat-gateway/domain"
	"chat-gateway/domain/event"
)

// handleWS is the session entry point. The credential is verified
// before the connection is upgraded, so an unauthenticated caller costs
// one HTTP round trip and never holds a socket. The rejection is a bare
// 401: the precise failure stays in the logs.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := g.verifier.Verify(bearerToken(r))
	if err != nil {
		g.log.Info("Rejecting websocket handshake", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	id := uuid.NewString()
	sess, err := g.registry.Register(id, identity)
	if err != nil {
		g.log.Error("Registering session failed", "session", id, "err", err)
		conn.Close()
		return
	}
	g.stats.SessionOpened()
	g.log.Info("Session opened",
		"session", id, "user", identity.ID, "username", identity.Username)

	s := newSession(g, conn, sess)
	go s.writePump()
	go s.readPump()
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, g.stats.Snapshot())
}

func (g *Gateway) handleRooms(w http.ResponseWriter, _ *http.Request) {
	names := g.catalog.Names()
	rooms := make([]map[string]any, 0, len(names))
	for _, name := range names {
		rooms = append(rooms, map[string]any{
			"name":    string(name),
			"members": g.bus.Members(name),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomName(chi.URLParam(r, "room"))
	if !g.joinAnyRoom && !g.catalog.Has(room) {
		respondError(w, http.StatusNotFound, "unknown room")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := g.store.History(room, limit)
	if err != nil {
		g.log.Error("Reading room history failed", "room", string(room), "err", err)
		respondError(w, http.StatusServiceUnavailable, "history unavailable")
		return
	}
	respondJSON(w, http.StatusOK, event.NewHistory(room, messages))
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	if g.index == nil {
		respondError(w, http.StatusNotFound, "search disabled")
		return
	}
	room := domain.RoomName(chi.URLParam(r, "room"))
	if !g.joinAnyRoom && !g.catalog.Has(room) {
		respondError(w, http.StatusNotFound, "unknown room")
		return
	}

	terms := r.URL.Query().Get("q")
	if terms == "" {
		respondError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	hits, err := g.index.Search(r.Context(), room, terms, limit)
	if err != nil {
		g.log.Error("Search failed", "room", string(room), "err", err)
		respondError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"query": terms, "hits": hits})
}
