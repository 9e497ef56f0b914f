package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/dailyclose/internal/testutil"
)

func TestLeaderElection(t *testing.T) {
	mr := testutil.NewMiniredis(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	redisOpt := &redis.Options{
		Addr: mr.Addr(),
	}

	t.Run("single instance is promoted", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mr.FlushAll()

		elector := NewLeaderElector(log, redisOpt)
		require.NoError(t, elector.Start(ctx))
		defer func() {
			require.NoError(t, elector.Stop())
		}()

		select {
		case <-elector.PromotedChan():
			assert.True(t, elector.IsLeader())
		case <-time.After(renewInterval + 2*time.Second):
			t.Fatal("Timed out waiting for promotion")
		}
	})

	t.Run("multiple instances elect one leader", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mr.FlushAll()

		elector1 := NewLeaderElector(log, redisOpt)
		elector2 := NewLeaderElector(log, redisOpt)

		require.NoError(t, elector1.Start(ctx))
		defer elector1.Stop()

		require.NoError(t, elector2.Start(ctx))
		defer elector2.Stop()

		// Wait for election
		time.Sleep(renewInterval + 500*time.Millisecond)

		leaders := 0
		if elector1.IsLeader() {
			leaders++
		}
		if elector2.IsLeader() {
			leaders++
		}

		assert.Equal(t, 1, leaders, "Exactly one instance should be leader")
	})

	t.Run("leader failover", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		mr.FlushAll()

		elector1 := NewLeaderElector(log, redisOpt)
		elector2 := NewLeaderElector(log, redisOpt)

		require.NoError(t, elector1.Start(ctx))
		require.NoError(t, elector2.Start(ctx))

		// Wait for election
		time.Sleep(renewInterval + 500*time.Millisecond)

		var leader, follower LeaderElector
		if elector1.IsLeader() {
			leader = elector1
			follower = elector2
			defer elector2.Stop()
		} else {
			leader = elector2
			follower = elector1
			defer elector1.Stop()
		}

		// Stopping the leader relinquishes the lease, so the follower takes
		// over on its next renew tick.
		require.NoError(t, leader.Stop())

		select {
		case <-follower.PromotedChan():
			assert.True(t, follower.IsLeader())
		case <-time.After(leaseTTL + renewInterval + 2*time.Second):
			t.Fatal("Follower never took over leadership")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default schedule", Config{Enabled: true, Schedule: "0 8 * * *", Concurrency: 1}, false},
		{"disabled skips validation", Config{Enabled: false}, false},
		{"empty schedule", Config{Enabled: true}, true},
		{"malformed schedule", Config{Enabled: true, Schedule: "every day at 8"}, true},
		{"too many fields", Config{Enabled: true, Schedule: "0 0 8 * * *"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
