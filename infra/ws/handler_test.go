package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridors/server/internal/domain/event"
	"github.com/corridors/server/internal/domain/model"
	"github.com/corridors/server/internal/fanout"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *fanout.RoomRegistry) {
	rooms := fanout.NewRoomRegistry(fanout.WithHeartbeatPeriod(0))
	h := New(testLogger(), rooms)

	r := chi.NewRouter()
	r.Get("/ws/{gameID}", h.ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rooms
}

func dial(t *testing.T, srv *httptest.Server, gameID model.GameId) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + gameID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServeHTTPDeliversBroadcastEventsAsJSON(t *testing.T) {
	srv, rooms := newTestServer(t)
	gameID := model.NewGameId()

	conn := dial(t, srv, gameID)

	// Drain the PlayerConnected hello first.
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rooms.Population(gameID) == 1
	}, time.Second, 10*time.Millisecond)

	ev := event.New(gameID, event.MoveMade, event.MoveMadePayload{})
	require.True(t, rooms.Broadcast(ev))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded event.Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.MoveMade, decoded.Kind)
}

func TestServeHTTPRejectsInvalidGameID(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/not-a-uuid"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
