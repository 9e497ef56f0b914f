package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/opsdesk/dailyclose/pkg/api"
	"github.com/opsdesk/dailyclose/pkg/filestore"
	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/mailer"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
	"github.com/opsdesk/dailyclose/pkg/scheduler"
)

var (
	// ErrRedisURLRequired is returned when Redis URL is not provided
	ErrRedisURLRequired = errors.New("redis URL is required")
	// ErrUnknownLedgerBackend is returned for an unrecognized ledger backend
	ErrUnknownLedgerBackend = errors.New("unknown ledger backend")
)

// Ledger backends selectable via configuration.
const (
	LedgerBackendMemory = "memory"
	LedgerBackendRedis  = "redis"
)

// Config represents the complete application configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9090"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	// Dependencies
	Redis     RedisConfig      `yaml:"redis"`
	Ledger    LedgerConfig     `yaml:"ledger"`
	FileStore filestore.Config `yaml:"filestore"`
	Mail      mailer.Config    `yaml:"mail"`

	// Report pipeline and its surfaces
	Report    pipeline.Config  `yaml:"report"`
	API       api.Config       `yaml:"api"`
	Scheduler scheduler.Config `yaml:"scheduler"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	URL string `yaml:"url" validate:"required,url"`
}

// LedgerConfig selects and tunes the run ledger backend.
type LedgerConfig struct {
	Backend string        `yaml:"backend" default:"redis"`
	LockTTL time.Duration `yaml:"lockTTL" default:"30m"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ledger.Backend != LedgerBackendMemory && c.Ledger.Backend != LedgerBackendRedis {
		return fmt.Errorf("%w: %s", ErrUnknownLedgerBackend, c.Ledger.Backend)
	}

	if c.Ledger.LockTTL <= 0 {
		c.Ledger.LockTTL = ledger.DefaultLockTTL
	}

	// Redis backs both the scheduler lease and the redis ledger.
	if c.Redis.URL == "" && (c.Scheduler.Enabled || c.Ledger.Backend == LedgerBackendRedis) {
		return ErrRedisURLRequired
	}

	if err := c.FileStore.Validate(); err != nil {
		return fmt.Errorf("invalid filestore config: %w", err)
	}

	if err := c.Mail.Validate(); err != nil {
		return fmt.Errorf("invalid mail config: %w", err)
	}

	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("invalid report config: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler config: %w", err)
	}

	return nil
}
