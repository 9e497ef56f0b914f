package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/opsdesk/dailyclose/pkg/observability"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
	redisutil "github.com/opsdesk/dailyclose/pkg/redis"
)

const (
	// TaskTypeDailyClose is the asynq task type of the daily trigger.
	TaskTypeDailyClose = "report:daily-close"
	// QueueName is the asynq queue for scheduler tasks.
	QueueName = "scheduler"
	// uniqueWindow prevents duplicate triggers around the scheduled time.
	uniqueWindow = 5 * time.Minute
)

// Service defines the public interface for the scheduler.
type Service interface {
	// Start initializes and starts the scheduler service
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler service
	Stop() error
}

type service struct {
	log logrus.FieldLogger
	cfg *Config

	done chan struct{}
	wg   sync.WaitGroup

	runner pipeline.Service

	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux

	elector LeaderElector
}

// NewService creates a new scheduler service. The asynq server runs on
// every instance so any of them can process a trigger; the asynq scheduler
// runs only on the elected leader.
func NewService(log logrus.FieldLogger, cfg *Config, redisOpt *redis.Options, runner pipeline.Service) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	asynqRedis := redisutil.NewAsynqRedisOptions(redisOpt)

	scheduler := asynq.NewScheduler(asynqRedis, &asynq.SchedulerOpts{
		Location: time.FixedZone("JST", 9*60*60),
		LogLevel: asynq.InfoLevel,
	})

	server := asynq.NewServer(asynqRedis, asynq.Config{
		Queues: map[string]int{
			QueueName: 10,
		},
		Concurrency: cfg.Concurrency,
	})

	return &service{
		log:       log.WithField("service", "scheduler"),
		cfg:       cfg,
		done:      make(chan struct{}),
		runner:    runner,
		scheduler: scheduler,
		server:    server,
		mux:       asynq.NewServeMux(),
		elector:   NewLeaderElector(log, redisOpt),
	}, nil
}

// Start initializes and starts the scheduler service.
func (s *service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler is disabled")
		return nil
	}

	s.mux.HandleFunc(TaskTypeDailyClose, s.HandleDailyClose)

	if err := s.elector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start leader election: %w", err)
	}

	s.wg.Add(1)
	go s.handleLeaderElection(ctx)

	// The server always runs so triggers enqueued by whichever instance
	// leads get processed here too.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Run(s.mux); err != nil {
			s.log.WithError(err).Error("Scheduler server stopped with error")
		}
	}()

	s.log.Info("Scheduler service started (participating in leader election)")

	return nil
}

// Stop gracefully shuts down the scheduler service.
func (s *service) Stop() error {
	if !s.cfg.Enabled {
		return nil
	}

	close(s.done)

	if err := s.elector.Stop(); err != nil {
		s.log.WithError(err).Warn("Failed to stop leader elector")
	}

	if s.scheduler != nil {
		s.scheduler.Shutdown()
	}
	if s.server != nil {
		s.server.Shutdown()
	}

	s.wg.Wait()

	s.log.Info("Scheduler service stopped")

	return nil
}

// handleLeaderElection starts the asynq scheduler on promotion. Scheduler
// entries are ephemeral; the promoted instance re-registers the daily task.
func (s *service) handleLeaderElection(ctx context.Context) {
	defer s.wg.Done()

	promoted := s.elector.PromotedChan()
	demoted := s.elector.DemotedChan()

	var schedulerRunning bool

	for {
		select {
		case <-s.done:
			return

		case <-ctx.Done():
			return

		case <-promoted:
			if schedulerRunning {
				s.log.Warn("Received promotion but scheduler already running")
				continue
			}

			s.log.Info("Promoted to scheduler leader - registering daily trigger")

			if err := s.registerDailyTrigger(); err != nil {
				s.log.WithError(err).Error("Failed to register daily trigger")
				continue
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.scheduler.Run(); err != nil {
					s.log.WithError(err).Error("Scheduler stopped with error")
				}
			}()
			schedulerRunning = true

		case <-demoted:
			s.log.Info("Demoted from scheduler leader")
			schedulerRunning = false
		}
	}
}

func (s *service) registerDailyTrigger() error {
	task := asynq.NewTask(TaskTypeDailyClose, nil)

	entryID, err := s.scheduler.Register(s.cfg.Schedule, task,
		asynq.Queue(QueueName),
		asynq.Unique(uniqueWindow),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s with schedule %s: %w", TaskTypeDailyClose, s.cfg.Schedule, err)
	}

	s.log.WithFields(logrus.Fields{
		"task_type": TaskTypeDailyClose,
		"schedule":  s.cfg.Schedule,
		"entry_id":  entryID,
	}).Info("Registered daily trigger")

	return nil
}

// HandleDailyClose runs the pipeline for yesterday in the report timezone.
// Business states (not ready, already sent, running) are logged, not
// errored, so asynq never retries them.
func (s *service) HandleDailyClose(ctx context.Context, _ *asynq.Task) error {
	asOfDate := pipeline.DefaultAsOfDate(time.Now())
	observability.RecordScheduledTrigger()

	log := s.log.WithField("as_of_date", asOfDate)
	log.Info("Processing scheduled daily close")

	result, err := s.runner.Run(ctx, asOfDate)
	if err != nil {
		log.WithError(err).Error("Scheduled daily close failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"status":          result.Status,
		"fact_daily_rows": result.FactDailyRows,
		"fact_long_rows":  result.FactLongRows,
	}).Info("Scheduled daily close finished")

	return nil
}

var _ Service = (*service)(nil)
