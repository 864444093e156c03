package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corridors/server/infra/ws"
	"github.com/corridors/server/internal/fanout"
)

func TestRouterServesHealthz(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rooms := fanout.NewRoomRegistry(fanout.WithHeartbeatPeriod(0))
	wsHandler := ws.New(logger, rooms)
	health := NewHealthManager()

	r := NewRouter(wsHandler, health)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
