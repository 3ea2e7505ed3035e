package livesync

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the live sync service
type Config struct {
	ConnectionConfig ConnectionConfig
	TickInterval     time.Duration
}

// DefaultConfig returns default configuration for the live sync service
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		TickInterval:     DefaultTickInterval,
	}
}

// Service ties together the registry, hub, connections and periodic broadcast.
type Service struct {
	registry    *Registry
	hub         *Hub
	connections *ConnectionManager
	broadcaster *Broadcaster
	wsHandler   *WebSocketHandler
}

// NewService creates a new live sync service
func NewService(config Config, resolver TokenResolver, ledger TimerLedger, clock clockwork.Clock) *Service {
	registry := NewRegistry()
	hub := NewHub(registry, resolver, ledger)
	connections := NewConnectionManager(config.ConnectionConfig, hub)

	return &Service{
		registry:    registry,
		hub:         hub,
		connections: connections,
		broadcaster: NewBroadcaster(registry, ledger, clock, config.TickInterval),
		wsHandler:   NewWebSocketHandler(connections, registry),
	}
}

// Start runs the broadcaster until ctx is cancelled, then closes every connection
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting live sync service")

	s.broadcaster.Run(ctx)

	log.Info().Msg("live sync service shutting down")
	return s.Stop()
}

// Stop closes all open connections
func (s *Service) Stop() error {
	s.connections.CloseAll("server shutting down")
	log.Info().Msg("live sync service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("live sync routes registered")
}

// GetStats returns statistics about the live channel
func (s *Service) GetStats() Stats {
	return s.wsHandler.GetStats()
}

// Registry exposes the connection registry
func (s *Service) Registry() *Registry {
	return s.registry
}
