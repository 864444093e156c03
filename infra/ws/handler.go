// Package ws is the websocket transport edge for the Room Fan-out layer
// (spec.md §6.6 "GET /ws/{game_id}"). It is a direct adaptation of the
// teacher's internal/handler/ws/delivery.go: upgrade, subscribe through the
// same registry the rest of the server broadcasts through, then run a
// push-only pump loop until the connection or the room goes away.
//
// Unlike the teacher (per-user subscription, JWT-derived identity), a
// Corridors websocket is scoped to one game_id and carries no
// authentication — spec.md's Non-goals exclude an auth layer entirely, so
// CheckOrigin stays permissive the same way the teacher's upgrader does for
// its own unauthenticated dev path.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
)

const (
	mailboxSize  = 64
	sendTimeout  = 2 * time.Second
	pongWait     = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// Handler upgrades an HTTP request to a websocket and pumps one game's
// broadcast events to it.
type Handler struct {
	logger   *slog.Logger
	rooms    *fanout.RoomRegistry
	upgrader websocket.Upgrader
}

// New constructs a Handler bound to rooms.
func New(logger *slog.Logger, rooms *fanout.RoomRegistry) *Handler {
	return &Handler{
		logger: logger,
		rooms:  rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements chi's route signature for "GET /ws/{gameID}".
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gameID, err := parseGameID(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := fanout.NewSubscriber(r.Context(), mailboxSize)
	defer sub.Close()

	h.rooms.Subscribe(gameID, sub)
	defer h.rooms.Unsubscribe(gameID, sub.ID())

	h.logger.Info("ws opened", "game_id", gameID, "conn_id", sub.ID())

	go h.readPump(conn, gameID, sub.ID())
	h.writePump(r, conn, sub)
}

// writePump is the teacher's main WS pump loop, generalized from one
// marshaller call to a plain json.Marshal of the event envelope — Corridors
// has no wire-format abstraction layer to route through (spec.md §6.4's
// envelope is already JSON-shaped).
func (h *Handler) writePump(r *http.Request, conn *websocket.Conn, sub fanout.Subscriber) {
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Recv():
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to marshal ws event", "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("ws send failed", "err", err)
				return
			}
		}
	}
}

// readPump drains inbound frames purely to detect liveness: Corridors
// clients never send commands over this socket (spec.md §6.6 — moves are
// not submitted through this HTTP edge at all), so every frame, including pongs, just
// refreshes the room's heartbeat bookkeeping until the peer disconnects.
func (h *Handler) readPump(conn *websocket.Conn, gameID model.GameId, subID uuid.UUID) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.rooms.NotePong(gameID, subID)
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		h.rooms.NotePong(gameID, subID)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func parseGameID(raw string) (model.GameId, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return model.GameId{}, err
	}
	return model.GameId(id), nil
}
