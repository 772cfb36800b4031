package websocket

import (
	"allchat/runtime"
	"context"
	"log/slog"
	"net/http"
	"sync"

	gorilla "github.com/gorilla/websocket"
)

// EventHandler consumes the events of every connection.
type EventHandler interface {
	HandleEvent(ctx context.Context, e runtime.ConnectionEvent)
}

// Server upgrades HTTP requests to websocket sessions bound to a resolved user.
type Server struct {
	log      *slog.Logger
	handler  EventHandler
	identity IdentityResolver
	upgrader gorilla.Upgrader
	settings Settings
	ctx      context.Context
	wg       sync.WaitGroup
}

// NewServer ties every session to ctx: cancelling it closes all connections.
func NewServer(ctx context.Context, log *slog.Logger, handler EventHandler,
	identity IdentityResolver, settings Settings) *Server {
	if identity == nil {
		identity = QueryIdentity
	}
	return &Server{
		log:      log,
		handler:  handler,
		identity: identity,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(settings.AllowedOrigins),
		},
		settings: settings,
		ctx:      ctx,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := s.identity(r)
	if err != nil {
		s.log.Debug("Rejecting connection without identity", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.log.Debug("Failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	NewSession(s.log, conn, userID, s.settings).Run(s.ctx, s.handler.HandleEvent)
}

// Wait blocks until every session returned.
func (s *Server) Wait() {
	s.wg.Wait()
}
