package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/dailyclose/internal/testutil"
)

// testLedgerContract exercises the behavior shared by every backend.
func testLedgerContract(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	t.Run("acquire then conflict then release", func(t *testing.T) {
		require.NoError(t, l.Acquire(ctx, "2026-08-25"))
		assert.ErrorIs(t, l.Acquire(ctx, "2026-08-25"), ErrAlreadyRunning)

		// Locks are per-date.
		require.NoError(t, l.Acquire(ctx, "2026-08-24"))
		require.NoError(t, l.Release(ctx, "2026-08-24"))

		require.NoError(t, l.Release(ctx, "2026-08-25"))
		assert.NoError(t, l.Acquire(ctx, "2026-08-25"))
		require.NoError(t, l.Release(ctx, "2026-08-25"))
	})

	t.Run("release is idempotent", func(t *testing.T) {
		assert.NoError(t, l.Release(ctx, "2026-08-20"))
	})

	t.Run("success record round trip", func(t *testing.T) {
		rec, err := l.GetSuccess(ctx, "2026-08-23")
		require.NoError(t, err)
		assert.Nil(t, rec, "date never completed")

		stored := &Record{
			AsOfDate:           "2026-08-23",
			RunID:              "run-1",
			FactDailyRows:      12,
			FactLongRows:       84,
			AttachmentFilename: "2026-08-23_confirmed-actuals.xlsx",
			CompletedAt:        time.Date(2026, 8, 24, 8, 5, 0, 0, time.UTC),
		}
		require.NoError(t, l.MarkSucceeded(ctx, "2026-08-23", stored))

		got, err := l.GetSuccess(ctx, "2026-08-23")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, stored, got)
	})
}

func TestMemoryLedger(t *testing.T) {
	testLedgerContract(t, NewMemory(time.Minute))
}

func TestRedisLedger(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)
	testLedgerContract(t, NewRedis(client, time.Minute))
}

func TestMemoryLedgerStaleLockExpires(t *testing.T) {
	ctx := context.Background()

	l := NewMemory(time.Minute)
	current := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	require.NoError(t, l.Acquire(ctx, "2026-08-25"))
	assert.ErrorIs(t, l.Acquire(ctx, "2026-08-25"), ErrAlreadyRunning)

	// Just inside the TTL the lock is still honored.
	current = current.Add(59 * time.Second)
	assert.ErrorIs(t, l.Acquire(ctx, "2026-08-25"), ErrAlreadyRunning)

	// Past the TTL the abandoned lock is swept and re-acquirable.
	current = current.Add(2 * time.Minute)
	assert.NoError(t, l.Acquire(ctx, "2026-08-25"))
}

func TestRedisLedgerStaleLockExpires(t *testing.T) {
	ctx := context.Background()

	mr, client := testutil.NewMiniredisClient(t)
	l := NewRedis(client, time.Minute)

	require.NoError(t, l.Acquire(ctx, "2026-08-25"))
	assert.ErrorIs(t, l.Acquire(ctx, "2026-08-25"), ErrAlreadyRunning)

	mr.FastForward(2 * time.Minute)

	assert.NoError(t, l.Acquire(ctx, "2026-08-25"))
}

func TestMemoryLedgerGetSuccessReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(0)

	require.NoError(t, l.MarkSucceeded(ctx, "2026-08-25", &Record{RunID: "run-1"}))

	got, err := l.GetSuccess(ctx, "2026-08-25")
	require.NoError(t, err)
	got.RunID = "mutated"

	again, err := l.GetSuccess(ctx, "2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, "run-1", again.RunID)
}

func TestNewMemoryDefaultsTTL(t *testing.T) {
	l := NewMemory(0)
	assert.Equal(t, DefaultLockTTL, l.ttl)
}
