// Package scheduler triggers the daily close run on a cron schedule, with
// redis-based leader election so only one instance schedules.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Config validation errors.
var (
	ErrScheduleRequired = errors.New("schedule is required when the scheduler is enabled")
)

// Config holds scheduler configuration.
type Config struct {
	// Enabled controls whether this instance participates in scheduling.
	Enabled bool `yaml:"enabled" default:"true"`
	// Schedule is the cron expression for the daily trigger, evaluated in
	// the report timezone (UTC+9). The default fires at 08:00 JST, after
	// the upstream exports for the previous day land.
	Schedule string `yaml:"schedule" default:"0 8 * * *"`
	// Concurrency is the asynq server concurrency. The pipeline serializes
	// per date through the run ledger, so one worker is enough.
	Concurrency int `yaml:"concurrency" default:"1"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Schedule == "" {
		return ErrScheduleRequired
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.Schedule, err)
	}

	return nil
}
