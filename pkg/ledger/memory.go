package ledger

import (
	"context"
	"sync"
	"time"
)

// Memory is the process-local, non-durable ledger. It provides mutual
// exclusion within a single process only; state does not survive restarts.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	locks   map[string]time.Time
	records map[string]*Record
}

// NewMemory creates an in-memory ledger with the given lock TTL. A zero TTL
// falls back to DefaultLockTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		locks:   make(map[string]time.Time),
		records: make(map[string]*Record),
	}
}

// Acquire takes the lock for the date, sweeping any stale locks first.
func (m *Memory) Acquire(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepStale()

	if _, held := m.locks[date]; held {
		return ErrAlreadyRunning
	}
	m.locks[date] = m.now()

	return nil
}

// Release unconditionally clears the lock for the date.
func (m *Memory) Release(_ context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, date)

	return nil
}

// MarkSucceeded stores the terminal success record for the date.
func (m *Memory) MarkSucceeded(_ context.Context, date string, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *record
	m.records[date] = &rec

	return nil
}

// GetSuccess returns the success record for the date, or nil when the date
// has never completed.
func (m *Memory) GetSuccess(_ context.Context, date string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[date]
	if !ok {
		return nil, nil
	}

	out := *rec

	return &out, nil
}

// sweepStale discards every lock older than the TTL. Callers hold m.mu.
func (m *Memory) sweepStale() {
	cutoff := m.now().Add(-m.ttl)
	for date, acquiredAt := range m.locks {
		if acquiredAt.Before(cutoff) {
			delete(m.locks, date)
		}
	}
}

var _ Ledger = (*Memory)(nil)
