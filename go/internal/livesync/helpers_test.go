package livesync

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/timers"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	code   int
	reason string
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.code = code
	c.reason = reason
}

func (c *fakeConn) messages(t *testing.T) []ServerMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ServerMessage, 0, len(c.frames))
	for _, f := range c.frames {
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(f, &msg))
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) ServerMessage {
	t.Helper()
	msgs := c.messages(t)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type fakeResolver struct {
	users map[string]*models.User
	err   error
}

func (r *fakeResolver) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.users[token], nil
}

type fixture struct {
	clock    *clockwork.FakeClock
	registry *Registry
	ledger   *timers.App
	resolver *fakeResolver
	hub      *Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	registry := NewRegistry()
	ledger := timers.NewApp(timers.NewMemoryStore(), clock)
	resolver := &fakeResolver{users: map[string]*models.User{}}

	return &fixture{
		clock:    clock,
		registry: registry,
		ledger:   ledger,
		resolver: resolver,
		hub:      NewHub(registry, resolver, ledger),
	}
}

func (f *fixture) addUser(token string) *models.User {
	user := &models.User{ID: uuid.New(), Username: "user-" + token, CreatedAt: epoch}
	f.resolver.users[token] = user
	return user
}

func send(t *testing.T, p *Peer, msg ClientMessage) {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	p.HandleMessage(context.Background(), raw)
}

// authenticated attaches conn and completes the handshake with token
func (f *fixture) authenticated(t *testing.T, conn *fakeConn, token string) *Peer {
	t.Helper()
	p := f.hub.Attach(conn)
	send(t, p, ClientMessage{Type: MessageTypeAuthenticate, Token: token})
	require.Equal(t, PhaseAuthenticated, p.State().Phase)
	return p
}
