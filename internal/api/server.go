// Package api serves the status endpoints of a long-running watch process:
// health, metrics and the ledger of extracted files.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/store"
)

type Config struct {
	Addr    string
	Version string
	// JWTSecret protects the ledger routes with HS256 bearer tokens; empty
	// leaves them open.
	JWTSecret string
}

// Server handles the status HTTP API
type Server struct {
	app    *fiber.App
	config Config
	ledger *store.Store
	logger *zap.Logger
}

// New creates the server. ledger may be nil, in which case the document
// routes answer 503.
func New(cfg Config, ledger *store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:    app,
		config: cfg,
		ledger: ledger,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Start blocks serving on the configured address
func (s *Server) Start() error {
	s.logger.Info("Status server listening", zap.String("addr", s.config.Addr))
	return s.app.Listen(s.config.Addr)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
