// internal/handlers/server.go
package handlers

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cardtable/unoserv/internal/cache"
	"github.com/cardtable/unoserv/internal/session"
)

// Server is the connection orchestrator. It owns the session registry and the
// per-connection websocket handlers; all durable state goes through the
// database package.
type Server struct {
	Logger   *logrus.Logger
	Registry *session.Registry

	// TurnTimeout is the optional per-turn deadline. Zero disables it; on
	// expiry the current player auto-draws one card and the turn passes.
	TurnTimeout time.Duration
}

// NewServer builds a Server, reading TURN_TIMEOUT_SEC from the environment.
func NewServer(logger *logrus.Logger) *Server {
	return &Server{
		Logger:      logger,
		Registry:    session.NewRegistry(),
		TurnTimeout: time.Duration(cache.GetEnvInt("TURN_TIMEOUT_SEC", 0)) * time.Second,
	}
}
