package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/config"
	"github.com/custodia/custodia/internal/httpx"
	"github.com/custodia/custodia/internal/routes"
)

// Server wraps the Fiber application.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New builds the Fiber app with the problem+json error handler and delegates
// route wiring to routes.Setup.
func New(deps routes.Deps) (*Server, error) {
	app := NewApp(deps.Cfg, deps.Logger)
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}
	return &Server{app: app, cfg: deps.Cfg}, nil
}

// NewApp returns a Fiber app configured the way the server runs it.
func NewApp(cfg config.Config, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             64 * 1024,
		DisableStartupMessage: !cfg.IsDev(),
		ErrorHandler:          httpx.ErrorHandler(logger),
	})
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
