package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"

	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
)

// Service defines the API service interface.
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app    *fiber.App
	server *http.Server
	config *Config
	runner pipeline.Service
	ledger ledger.Ledger
	log    logrus.FieldLogger
}

// NewService creates the HTTP trigger service.
func NewService(cfg *Config, runner pipeline.Service, runLedger ledger.Ledger, log logrus.FieldLogger) Service {
	return &service{
		config: cfg,
		runner: runner,
		ledger: runLedger,
		log:    log.WithField("service", "api"),
	}
}

// Start initializes and starts the API server.
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "dailyclose API",
	})

	setupMiddleware(s.app)

	handler := newHandler(s.runner, s.ledger, s.log)
	apiV1 := s.app.Group("/api/v1")
	apiV1.Post("/run", handler.RunDailyClose)
	apiV1.Get("/runs/:date", handler.GetRunRecord)

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}

	return nil
}

var _ Service = (*service)(nil)
