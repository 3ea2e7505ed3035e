package livesync

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Conn is the server side of one live channel as seen by the hub and broadcaster
type Conn interface {
	ID() string
	// Send queues a frame. It reports false when the frame could not be queued.
	Send(data []byte) bool
	Open() bool
	Close(code int, reason string)
}

// Registry maps a user id to that user's single live connection.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register makes conn the user's connection and returns the one it replaced, if any.
// The replaced connection is not notified.
func (r *Registry) Register(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.conns[userID]
	r.conns[userID] = conn

	if previous != nil && previous != conn {
		log.Debug().
			Str("user_id", userID).
			Str("connection_id", conn.ID()).
			Str("replaced_connection_id", previous.ID()).
			Msg("connection replaced")
	}

	return previous
}

// Unregister removes the user's entry whatever connection it holds
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, userID)
}

// Release removes the user's entry only if it still points at conn.
func (r *Registry) Release(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the user's registered connection
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// ForEach calls fn for every entry of a snapshot taken under the lock. Order is unspecified.
func (r *Registry) ForEach(fn func(userID string, conn Conn)) {
	r.mu.RLock()
	snapshot := make(map[string]Conn, len(r.conns))
	for userID, conn := range r.conns {
		snapshot[userID] = conn
	}
	r.mu.RUnlock()

	for userID, conn := range snapshot {
		fn(userID, conn)
	}
}

// Len returns the number of registered users
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
