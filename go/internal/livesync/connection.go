package livesync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/tempo/go/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for live channel connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// AllowedOrigins lists browser origins allowed to open the channel. Empty means same
	// origin only, "*" allows any.
	AllowedOrigins []string
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
	}
}

// ConnectionManager upgrades requests and tracks every open connection, authenticated or not.
type ConnectionManager struct {
	upgrader websocket.Upgrader
	config   ConnectionConfig
	hub      *Hub
	metrics  *telemetry.Metrics

	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// NewConnectionManager creates a ConnectionManager
func NewConnectionManager(config ConnectionConfig, hub *Hub) *ConnectionManager {
	return &ConnectionManager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		config:  config,
		hub:     hub,
		metrics: telemetry.GetMetrics(),
		conns:   make(map[*Connection]struct{}),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		// nil falls back to the upgrader's same-origin check
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return false
	}
}

// Upgrade upgrades an HTTP request to a live channel and starts its pumps.
// Storage work for the connection runs on ctx, not on the request context.
func (cm *ConnectionManager) Upgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &Connection{
		id:          uuid.NewString(),
		ws:          ws,
		send:        make(chan []byte, cm.config.SendBufferSize),
		done:        make(chan struct{}),
		manager:     cm,
		connectedAt: time.Now(),
	}
	c.peer = cm.hub.Attach(c)

	cm.add(c)

	go c.writePump()
	go c.readPump(ctx)

	log.Info().
		Str("connection_id", c.id).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) add(c *Connection) {
	cm.mu.Lock()
	cm.conns[c] = struct{}{}
	total := len(cm.conns)
	cm.mu.Unlock()

	cm.metrics.ConnectionsTotal.Add(context.Background(), 1)
	cm.metrics.ConnectionsActive.Add(context.Background(), 1)

	log.Debug().Str("connection_id", c.id).Int("total_connections", total).Msg("connection registered")
}

func (cm *ConnectionManager) remove(c *Connection) {
	cm.mu.Lock()
	_, exists := cm.conns[c]
	delete(cm.conns, c)
	cm.mu.Unlock()

	if exists {
		cm.metrics.ConnectionsActive.Add(context.Background(), -1)
	}
}

// Count returns the number of open connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return len(cm.conns)
}

// CloseAll closes every open connection with a going-away frame
func (cm *ConnectionManager) CloseAll(reason string) {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.conns))
	for c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, reason)
	}

	log.Info().Int("connections", len(conns)).Msg("closed all live channel connections")
}

// Connection is one client's WebSocket. The send channel is never closed; done signals shutdown.
type Connection struct {
	id          string
	ws          *websocket.Conn
	send        chan []byte
	done        chan struct{}
	manager     *ConnectionManager
	peer        *Peer
	connectedAt time.Time

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

var _ Conn = (*Connection)(nil)

// ID returns the connection id
func (c *Connection) ID() string {
	return c.id
}

// Open reports whether the connection has not started closing
func (c *Connection) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send queues a frame for the write pump. A connection whose buffer is full is closed.
func (c *Connection) Send(data []byte) bool {
	if !c.Open() {
		return false
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.manager.metrics.SlowConsumers.Add(context.Background(), 1)
		log.Warn().
			Str("connection_id", c.id).
			Msg("connection send buffer full, closing connection")
		c.Close(websocket.CloseTryAgainLater, "send buffer full")
		return false
	}
}

// Close sends a close frame with code and reason, then tears the socket down
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// abort marks the connection closed without a close frame, used once the peer is gone
func (c *Connection) abort() {
	c.Close(0, "")
}

func (c *Connection) writePump() {
	cfg := c.manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				c.abort()
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				c.abort()
				return
			}

		case <-c.done:
			if c.closeCode != 0 {
				frame := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
				if err := c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(cfg.WriteTimeout)); err != nil {
					log.Debug().Err(err).Str("connection_id", c.id).Msg("failed to write close frame")
				}
			}
			return
		}
	}
}

// readPump feeds the peer sequentially. The write pump owns the socket and closes it,
// which unblocks ReadMessage here.
func (c *Connection) readPump(ctx context.Context) {
	cfg := c.manager.config
	defer func() {
		c.abort()
		c.peer.Disconnect(ctx)
		c.manager.remove(c)

		log.Info().
			Str("connection_id", c.id).
			Dur("connected_for", time.Since(c.connectedAt)).
			Msg("WebSocket connection closed")
	}()

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close")
			}
			return
		}

		c.peer.HandleMessage(ctx, message)
		c.ws.SetReadDeadline(time.Now().Add(cfg.PongTimeout))
	}
}
