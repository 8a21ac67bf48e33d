// Package gateway serves devices over WebSockets and the host actions over Connect.
package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/huddle/go/internal/identity"
	"github.com/mcdev12/huddle/go/internal/session"
	"github.com/rs/zerolog/log"
)

// Service is the party hub gateway: one session per WebSocket plus the host RPC surface
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	host              *HostService
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a gateway whose sessions all share app
func NewService(config Config, app *session.AppContext) *Service {
	app = app.WithDefaults()
	connectionManager := NewConnectionManager(config.ConnectionConfig, func(ids identity.Store) *session.Session {
		return session.New(app, ids)
	})

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		host:              NewHostService(app),
	}
}

// Start blocks until ctx is done, then closes every connection
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting party gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("party gateway stopped")
}

// RegisterRoutes registers the WebSocket and host RPC routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	mux.Handle(NewHostServiceHandler(s.host))
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "huddle_gateway"
	stats["status"] = "running"
	return stats
}
