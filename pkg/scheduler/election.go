package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	leaderKey     = "dailyclose:scheduler:leader"
	leaseTTL      = 10 * time.Second
	renewInterval = 3 * time.Second
)

// LeaderElector manages distributed leader election using Redis. Only the
// leader registers the daily schedule; every instance processes triggers.
type LeaderElector interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	PromotedChan() <-chan struct{}
	DemotedChan() <-chan struct{}
}

type elector struct {
	log        logrus.FieldLogger
	redis      *redis.Client
	instanceID string

	isLeader bool
	mu       sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	promoted chan struct{}
	demoted  chan struct{}
}

// NewLeaderElector creates a new leader elector instance.
func NewLeaderElector(log logrus.FieldLogger, redisOpt *redis.Options) LeaderElector {
	return &elector{
		log:        log.WithField("component", "election"),
		redis:      redis.NewClient(redisOpt),
		instanceID: uuid.New().String(),
		done:       make(chan struct{}),
		promoted:   make(chan struct{}, 1),
		demoted:    make(chan struct{}, 1),
	}
}

func (e *elector) Start(ctx context.Context) error {
	e.log.WithField("instance_id", e.instanceID).Info("Starting leader election")

	e.wg.Add(1)
	go e.run(ctx)

	return nil
}

func (e *elector) Stop() error {
	close(e.done)

	e.relinquish(context.Background())
	e.wg.Wait()

	if err := e.redis.Close(); err != nil {
		e.log.WithError(err).Warn("Failed to close redis client")
	}

	e.log.Info("Leader election stopped")

	return nil
}

func (e *elector) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			wasLeader := e.IsLeader()
			acquired := e.tryAcquire(ctx)

			switch {
			case acquired && !wasLeader:
				e.setLeader(true)
				e.log.WithField("instance_id", e.instanceID).Info("Promoted to scheduler leader")
				notify(e.promoted)

			case !acquired && wasLeader:
				e.setLeader(false)
				e.log.WithField("instance_id", e.instanceID).Info("Demoted from scheduler leader")
				notify(e.demoted)
			}
		}
	}
}

// tryAcquire takes or renews the leader lease. The lease expires
// server-side, so a crashed leader is replaced within one TTL.
func (e *elector) tryAcquire(ctx context.Context) bool {
	ok, err := e.redis.SetNX(ctx, leaderKey, e.instanceID, leaseTTL).Result()
	if err != nil {
		e.log.WithError(err).Debug("Failed to acquire leader lease")
		return false
	}
	if ok {
		return true
	}

	owner, err := e.redis.Get(ctx, leaderKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.log.WithError(err).Debug("Failed to check lease owner")
		}

		return false
	}

	if owner != e.instanceID {
		return false
	}

	if err := e.redis.Expire(ctx, leaderKey, leaseTTL).Err(); err != nil {
		e.log.WithError(err).Warn("Failed to renew leader lease")
		return false
	}

	return true
}

func (e *elector) relinquish(ctx context.Context) {
	if !e.IsLeader() {
		return
	}

	owner, err := e.redis.Get(ctx, leaderKey).Result()
	if err == nil && owner == e.instanceID {
		if err := e.redis.Del(ctx, leaderKey).Err(); err != nil {
			e.log.WithError(err).Warn("Failed to delete leader lease")
		}
	}

	e.setLeader(false)
}

func (e *elector) setLeader(isLeader bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = isLeader
}

func (e *elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isLeader
}

func (e *elector) PromotedChan() <-chan struct{} {
	return e.promoted
}

func (e *elector) DemotedChan() <-chan struct{} {
	return e.demoted
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

var _ LeaderElector = (*elector)(nil)
