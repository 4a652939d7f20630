package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service bundles the gateway's websocket and HTTP surfaces: the
// connection manager, the command endpoints and the room state
// endpoint.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	commandHandler    *CommandHandler
	stateHandler      *StateHandler
}

// NewService creates a gateway service over an existing connection
// manager. The manager is created by the caller because it doubles as
// the controller's broadcaster.
func NewService(cm *ConnectionManager, commander Commander, authorizer Authorizer, stateProvider StateProvider) *Service {
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		commandHandler:    NewCommandHandler(commander, authorizer, cm),
		stateHandler:      NewStateHandler(stateProvider),
	}
}

// Start runs the broadcast loop until the context ends.
func (s *Service) Start(ctx context.Context) {
	s.connectionManager.Start(ctx)
}

// RegisterRoutes registers every gateway route.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.commandHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// ConnectionManager exposes the manager for stats and broadcasting.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}
