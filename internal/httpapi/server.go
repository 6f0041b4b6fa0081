package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 5 * time.Second

// NewApp builds the fiber app with every route registered.
func NewApp(handler *RegulationHandler, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		app = fiber.New(fiber.Config{
			ErrorHandler:          NewErrorHandler(logger),
			DisableStartupMessage: true,
		})
		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	check.Get("/healthy", NewCheckHandler().HandleHealthy)
	apiv1.Post("/search", handler.HandleSearch)
	apiv1.Get("/sections/:section", handler.HandleGetSection)
	apiv1.Get("/chunks/:id", handler.HandleGetChunk)
	apiv1.Get("/count", handler.HandleCount)

	return app
}

type Server struct {
	listenAddr string
	app        *fiber.App
	logger     *slog.Logger
}

func NewServer(addr string, handler *RegulationHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "http"))
	return &Server{
		listenAddr: addr,
		app:        NewApp(handler, logger),
		logger:     logger,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", slog.String("addr", s.listenAddr))
		errCh <- s.app.Listen(s.listenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
