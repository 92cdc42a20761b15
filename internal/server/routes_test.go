package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrim-server/internal/draft"
	"scrim-server/internal/lobby"
)

func newTestServer(t *testing.T) (*Server, *Coordinator, *fixtures) {
	t.Helper()
	c, f := newTestCoordinator(t)
	s := &Server{
		registry:    c.registry,
		router:      c.router,
		coordinator: c,
		limiter:     NewRateLimiter(100, time.Second),
	}
	return s, c, f
}

func TestAdminStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrLobbyNotFound, http.StatusNotFound},
		{ErrLobbyFull, http.StatusConflict},
		{ErrTeamFull, http.StatusConflict},
		{ErrAlreadyInLobby, http.StatusConflict},
		{draft.ErrWrongTurn, http.StatusBadRequest},
		{errMissingField("x"), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := adminStatus(c.err); got != c.want {
			t.Errorf("adminStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestAdminJoinHandler(t *testing.T) {
	s, c, _ := newTestServer(t)
	l := seedLobby(t, c, 4)
	handler := s.RegisterRoutes()

	body, _ := json.Marshal(AdminJoinLobbyRequest{
		Player: lobby.Player{ID: "sub", Name: "Substitute"},
		Team:   "A",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/lobbies/"+l.ID+"/join", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, l.Roster, 5)
}

func TestAdminJoinHandler_UnknownLobby(t *testing.T) {
	s, _, _ := newTestServer(t)
	handler := s.RegisterRoutes()

	body, _ := json.Marshal(AdminJoinLobbyRequest{Player: lobby.Player{ID: "sub", Name: "Sub"}})
	req := httptest.NewRequest(http.MethodPost, "/admin/lobbies/missing/join", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var e ErrorMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "LOBBY_NOT_FOUND", e.Code)
}

func TestAdminPurgeHandler(t *testing.T) {
	s, c, _ := newTestServer(t)
	l := seedLobby(t, c, 4)
	handler := s.RegisterRoutes()

	req := httptest.NewRequest(http.MethodDelete, "/admin/lobbies/"+l.ID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, c.store.Len())
}

func TestAdminServerInfoHandler(t *testing.T) {
	s, c, _ := newTestServer(t)
	l := seedLobby(t, c, 4)
	handler := s.RegisterRoutes()

	body, _ := json.Marshal(AdminServerInfoRequest{IP: "10.0.0.5", Password: "pw"})
	req := httptest.NewRequest(http.MethodPost, "/admin/lobbies/"+l.ID+"/server-info", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, l.Server)
	assert.Equal(t, "10.0.0.5", l.Server.IP)
}

func TestHealthHandler(t *testing.T) {
	s, c, _ := newTestServer(t)
	seedLobby(t, c, 4)
	handler := s.RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(1), resp["lobbies"])
}
