// Package ledger provides the per-date run lock and success ledger that
// guards the daily close pipeline against duplicate concurrent or repeat
// runs.
package ledger

import (
	"context"
	"errors"
	"time"
)

// DefaultLockTTL is how long an acquired lock is honored before it is
// treated as abandoned. The staleness sweep is a safety valve, not a
// guarantee of exactly-once execution.
const DefaultLockTTL = 30 * time.Minute

// ErrAlreadyRunning is returned by Acquire while a live lock exists for the
// same date.
var ErrAlreadyRunning = errors.New("a run for this date is already in progress")

// Record is the terminal success entry for one as-of date.
type Record struct {
	AsOfDate           string    `json:"as_of_date"`
	RunID              string    `json:"run_id"`
	FactDailyRows      int       `json:"fact_daily_rows"`
	FactLongRows       int       `json:"fact_long_rows"`
	AttachmentFilename string    `json:"attachment_filename"`
	CompletedAt        time.Time `json:"completed_at"`
}

// Ledger is the run-lock and success-ledger contract. Acquire grants
// at-most-one live lock per date; Release unconditionally clears it and is
// deferred on every pipeline exit path; MarkSucceeded stores the terminal
// record a later GetSuccess returns idempotently.
type Ledger interface {
	Acquire(ctx context.Context, date string) error
	Release(ctx context.Context, date string) error
	MarkSucceeded(ctx context.Context, date string, record *Record) error
	GetSuccess(ctx context.Context, date string) (*Record, error)
}
