package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dailyclose:ledger"

// Redis is the durable ledger: the lock is a SetNX lease with server-side
// expiry, so the TTL sweep needs no client-side bookkeeping and the
// acquire/markSucceeded/release contract survives process restarts.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a redis-backed ledger with the given lock TTL. A zero
// TTL falls back to DefaultLockTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &Redis{client: client, ttl: ttl}
}

// Acquire takes the per-date lock lease. The lease expires server-side
// after the TTL, which is the staleness sweep of the memory ledger done by
// redis itself.
func (r *Redis) Acquire(ctx context.Context, date string) error {
	ok, err := r.client.SetNX(ctx, r.lockKey(date), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock for %s: %w", date, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	return nil
}

// Release unconditionally clears the lock for the date.
func (r *Redis) Release(ctx context.Context, date string) error {
	if err := r.client.Del(ctx, r.lockKey(date)).Err(); err != nil {
		return fmt.Errorf("failed to release run lock for %s: %w", date, err)
	}

	return nil
}

// MarkSucceeded stores the terminal success record for the date. Records
// carry no TTL; success is permanent.
func (r *Redis) MarkSucceeded(ctx context.Context, date string, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record for %s: %w", date, err)
	}

	if err := r.client.Set(ctx, r.recordKey(date), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store run record for %s: %w", date, err)
	}

	return nil
}

// GetSuccess returns the success record for the date, or nil when the date
// has never completed.
func (r *Redis) GetSuccess(ctx context.Context, date string) (*Record, error) {
	data, err := r.client.Get(ctx, r.recordKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to load run record for %s: %w", date, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode run record for %s: %w", date, err)
	}

	return &record, nil
}

func (r *Redis) lockKey(date string) string {
	return fmt.Sprintf("%s:lock:%s", redisKeyPrefix, date)
}

func (r *Redis) recordKey(date string) string {
	return fmt.Sprintf("%s:record:%s", redisKeyPrefix, date)
}

var _ Ledger = (*Redis)(nil)
