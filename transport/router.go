package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router assembles the gateway's HTTP surface: the websocket endpoint
// plus the read-only REST sidecar.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", g.handleWS)
	r.Get("/healthz", g.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", g.handleRooms)
		r.Get("/rooms/{room}/history", g.handleHistory)
		r.Get("/rooms/{room}/search", g.handleSearch)
	})
	return r
}
