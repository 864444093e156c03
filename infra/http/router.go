// Package httpapi is the minimal HTTP edge of the Corridors core (spec.md
// §6.6): a health endpoint and the websocket upgrade route, mounted on a
// go-chi/chi/v5 router the way the teacher mounts its ws and long-poll
// handlers (internal/handler/ws/delivery.go, internal/handler/lp/delivery.go)
// off chi route params. Game commands (create_session, apply_move, ...)
// are Non-goals for this edge per spec.md §6.6 — they are exercised
// directly against turnrouter/matchmaker in tests and by any transport a
// deployment chooses to add.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/corridors/server/infra/ws"
)

// NewRouter builds the chi.Router spec.md §6.6 describes: a health check
// and the per-game websocket upgrade.
func NewRouter(wsHandler *ws.Handler, health *HealthManager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.ServeHTTP)
	r.Get("/ws/{gameID}", wsHandler.ServeHTTP)

	return r
}
