package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/auth"
	"github.com/mcdev12/tempo/go/internal/sessions"
	"github.com/mcdev12/tempo/go/internal/timers"
	"github.com/mcdev12/tempo/go/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveServer struct {
	svc   *Service
	srv   *httptest.Server
	token string
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	ctx := context.Background()

	userStore := users.NewMemoryStore()
	sessionStore := sessions.NewMemoryStore()
	user, err := userStore.CreateUser(ctx, users.CreateUserRequest{Username: "ada", PasswordHash: "x"})
	require.NoError(t, err)
	session, err := sessions.NewManager(sessionStore).Create(ctx, user.ID.String())
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(epoch)
	ledger := timers.NewApp(timers.NewMemoryStore(), clock)
	svc := NewService(DefaultConfig(), auth.NewResolver(sessionStore, userStore), ledger, clock)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &liveServer{svc: svc, srv: srv, token: session.Token}
}

func (s *liveServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readServerMessage(t *testing.T, ws *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ServerMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestConnection_AuthenticationFailureCloses(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: "bogus"}))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "Authentication failed", closeErr.Text)

	require.Eventually(t, func() bool {
		return s.svc.GetStats().TotalConnections == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnection_HandshakeAndCreate(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: s.token}))
	msg := readServerMessage(t, ws)
	assert.Equal(t, MessageTypeAllTimers, msg.Type)
	assert.Empty(t, msg.Data)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeCreateTimer, Description: " deep work "}))
	msg = readServerMessage(t, ws)
	assert.Equal(t, MessageTypeAllTimers, msg.Type)
	require.Len(t, msg.Data, 1)
	assert.Equal(t, "deep work", msg.Data[0].Description)
	assert.Equal(t, epoch.UnixMilli(), msg.Data[0].Start)

	stats := s.svc.GetStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.AuthenticatedUsers)
}

func TestConnection_WireFormat(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "authenticate", "token": s.token}))
	readServerMessage(t, ws)
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "create_timer", "description": "x"}))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	var generic struct {
		Type string                   `json:"type"`
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "all_timers", generic.Type)
	require.Len(t, generic.Data, 1)

	entry := generic.Data[0]
	assert.Contains(t, entry, "timerId")
	assert.Equal(t, "x", entry["description"])
	assert.Equal(t, float64(epoch.UnixMilli()), entry["start"])
	assert.Equal(t, true, entry["isActive"])
	assert.NotContains(t, entry, "end")
	assert.NotContains(t, entry, "duration")
}

func TestConnection_MalformedFrameKeepsConnection(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: s.token}))

	msg := readServerMessage(t, ws)
	assert.Equal(t, MessageTypeAllTimers, msg.Type)
}

func TestConnection_ClientCloseUnregisters(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: s.token}))
	readServerMessage(t, ws)
	require.Equal(t, 1, s.svc.Registry().Len())

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	ws.Close()

	require.Eventually(t, func() bool {
		stats := s.svc.GetStats()
		return stats.TotalConnections == 0 && stats.AuthenticatedUsers == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnection_StopClosesWithGoingAway(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: s.token}))
	readServerMessage(t, ws)

	require.NoError(t, s.svc.Stop())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}

func TestConnection_StatsEndpoint(t *testing.T) {
	s := newLiveServer(t)
	ws := s.dial(t)
	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageTypeAuthenticate, Token: s.token}))
	readServerMessage(t, ws)

	resp, err := http.Get(s.srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, Stats{TotalConnections: 1, AuthenticatedUsers: 1}, stats)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "http://api.example.com")
	assert.True(t, check(req), "same host")

	assert.Nil(t, originChecker(nil))
	assert.True(t, originChecker([]string{"*"})(req))
}
