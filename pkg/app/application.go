package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/opsdesk/dailyclose/pkg/api"
	"github.com/opsdesk/dailyclose/pkg/filestore"
	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/mailer"
	"github.com/opsdesk/dailyclose/pkg/observability"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
	"github.com/opsdesk/dailyclose/pkg/scheduler"
)

// Application encapsulates the daily close application logic
type Application struct {
	config *Config
	logger *logrus.Logger

	redisClient *goredis.Client
	runLedger   ledger.Ledger
	store       filestore.Store
	sender      mailer.Sender
	runner      pipeline.Service

	apiService       api.Service
	schedulerService scheduler.Service
	healthServer     *http.Server
	pprofServer      *http.Server
}

// NewApplication creates a new daily close application
func NewApplication(cfg *Config, logger *logrus.Logger) *Application {
	return &Application{
		config: cfg,
		logger: logger,
	}
}

// Start initializes and starts the application
func (a *Application) Start(ctx context.Context) error {
	// Validate configuration
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger.Info("Starting daily close service...")

	// Start metrics server
	observability.StartMetricsServer(a.config.MetricsAddr)
	a.logger.WithField("addr", a.config.MetricsAddr).Info("Started metrics server")

	// Start health check server if configured
	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	// Start pprof server if configured
	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	redisOpt, err := a.setupClients()
	if err != nil {
		return fmt.Errorf("failed to setup clients: %w", err)
	}

	a.runner, err = pipeline.NewService(a.logger, &a.config.Report, a.store, a.sender, a.runLedger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	if a.config.API.Enabled {
		a.apiService = api.NewService(&a.config.API, a.runner, a.runLedger, a.logger)
		if err := a.apiService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}

	if a.config.Scheduler.Enabled {
		svc, err := scheduler.NewService(a.logger, &a.config.Scheduler, redisOpt, a.runner)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		a.schedulerService = svc

		if err := a.schedulerService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	a.logger.Info("Daily close service started successfully")

	return nil
}

// Stop gracefully shuts down the application
func (a *Application) Stop() error {
	a.logger.Info("Shutting down daily close service...")

	// Create a timeout context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.schedulerService != nil {
		if err := a.schedulerService.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping scheduler")
			// Continue with cleanup
		}
	}

	if a.apiService != nil {
		if err := a.apiService.Stop(); err != nil {
			a.logger.WithError(err).Error("Error stopping API server")
		}
	}

	// Stop health check server
	if a.healthServer != nil {
		if err := a.healthServer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown health check server")
		}
	}

	// Stop pprof server
	if a.pprofServer != nil {
		if err := a.pprofServer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown pprof server")
		}
	}

	if err := observability.StopMetricsServer(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to shutdown metrics server")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.WithError(err).Error("Failed to close Redis client")
		}
	}

	return nil
}

func (a *Application) setupClients() (*goredis.Options, error) {
	var redisOpt *goredis.Options

	if a.config.Redis.URL != "" {
		opt, err := goredis.ParseURL(a.config.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisOpt = opt
	}

	switch a.config.Ledger.Backend {
	case LedgerBackendRedis:
		a.redisClient = goredis.NewClient(redisOpt)
		a.runLedger = ledger.NewRedis(a.redisClient, a.config.Ledger.LockTTL)
	case LedgerBackendMemory:
		a.runLedger = ledger.NewMemory(a.config.Ledger.LockTTL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownLedgerBackend, a.config.Ledger.Backend)
	}

	store, err := filestore.NewMinioStore(&a.config.FileStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	a.store = store

	sender, err := mailer.NewSMTPSender(&a.config.Mail)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail sender: %w", err)
	}
	a.sender = sender

	return redisOpt, nil
}

func (a *Application) startHealthCheck() {
	a.logger.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		// Ready once the pipeline is wired up
		if a.runner != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))
		}
	})

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Application) startPProf() {
	a.logger.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Pprof server failed")
		}
	}()
}
