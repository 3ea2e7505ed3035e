package livesync

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves the live channel endpoints
type WebSocketHandler struct {
	connections *ConnectionManager
	registry    *Registry
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, registry *Registry) *WebSocketHandler {
	return &WebSocketHandler{
		connections: cm,
		registry:    registry,
	}
}

// HandleConnection upgrades the request. Authentication happens in-band with the
// first authenticate frame, so no credentials are checked here.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	// storage work must outlive the request that opened the socket
	ctx := context.WithoutCancel(r.Context())

	if err := h.connections.Upgrade(ctx, w, r); err != nil {
		// the upgrader has already written the HTTP error response
		log.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("failed to upgrade WebSocket connection")
	}
}

// Stats is the /ws/stats payload
type Stats struct {
	TotalConnections   int `json:"total_connections"`
	AuthenticatedUsers int `json:"authenticated_users"`
}

// GetStats returns connection counts
func (h *WebSocketHandler) GetStats() Stats {
	return Stats{
		TotalConnections:   h.connections.Count(),
		AuthenticatedUsers: h.registry.Len(),
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.GetStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
