// Package transport is the websocket edge of the gateway: it owns the
// handshake, the per-connection read/write pumps and the HTTP sidecar
// endpoints. Everything below it (registry, bus, store) is transport
// agnostic.
package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/moderation"
	"chat-gateway/observability"
	"chat-gateway/repositories"
	"chat-gateway/runtime"
	"chat-gateway/search"
)

const (
	// writeWait bounds a single write to a peer.
	writeWait = 10 * time.Second
	// pongWait is how long a silent peer stays considered alive.
	pongWait = 60 * time.Second
	// pingPeriod must be below pongWait so pings keep the deadline fed.
	pingPeriod = (pongWait * 9) / 10
	// maxFrameSize bounds inbound client frames.
	maxFrameSize = 8192
	// sendBuffer is the per-session outbound queue; a session that lets
	// it fill is treated as dead.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Gateway wires the transport onto the gateway core. Index and
// Moderator are optional; a nil value disables the feature.
type Gateway struct {
	log      *slog.Logger
	verifier auth.Verifier
	registry *runtime.Registry
	bus      *runtime.Bus
	store    repositories.IMessageRepository
	catalog  *domain.Catalog
	stats    *observability.Stats

	index       *search.Index
	moderator   *moderation.Moderator
	joinAnyRoom bool
}

type Options struct {
	Log      *slog.Logger
	Verifier auth.Verifier
	Registry *runtime.Registry
	Bus      *runtime.Bus
	Store    repositories.IMessageRepository
	Catalog  *domain.Catalog
	Stats    *observability.Stats

	Index       *search.Index
	Moderator   *moderation.Moderator
	JoinAnyRoom bool
}

func NewGateway(opts Options) *Gateway {
	return &Gateway{
		log:         opts.Log,
		verifier:    opts.Verifier,
		registry:    opts.Registry,
		bus:         opts.Bus,
		store:       opts.Store,
		catalog:     opts.Catalog,
		stats:       opts.Stats,
		index:       opts.Index,
		moderator:   opts.Moderator,
		joinAnyRoom: opts.JoinAnyRoom,
	}
}

// bearerToken extracts the credential from the Authorization header or,
// for browser clients that cannot set headers on websocket dials, the
// token query parameter.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return r.URL.Query().Get("token")
}
