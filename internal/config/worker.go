package config

import (
	"fmt"
	"time"

	"github.com/queuectl/queuectl/internal/env"
)

// Process-level worker configuration. The durable tuneables in settings.go
// come from the store; everything here is per-invocation.
const (
	DefaultShutdownGrace   = 30 * time.Second
	DefaultStaleTimeout    = 10 * time.Minute
	DefaultReapInterval    = 60 * time.Second
	DefaultFinalizeRetries = 3
)

// WorkerConfig holds configuration for the worker pool process.
type WorkerConfig struct {
	Database StorageConfig

	// ShutdownGrace bounds how long the pool waits for in-flight jobs on stop.
	ShutdownGrace time.Duration `env:"QUEUECTL_SHUTDOWN_GRACE"`

	// StaleTimeout is the age at which a processing claim is presumed
	// abandoned and eligible for reaping.
	StaleTimeout time.Duration `env:"QUEUECTL_STALE_TIMEOUT"`

	// ReapInterval is the cadence of the reaper duty.
	ReapInterval time.Duration `env:"QUEUECTL_REAP_INTERVAL"`

	// DashboardAddr, when set, serves the read-only dashboard and metrics.
	DashboardAddr string `env:"QUEUECTL_DASHBOARD_ADDR"`
}

// LoadWorkerConfig loads worker configuration from the environment and
// applies defaults for unset fields.
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = DefaultStaleTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}

	return cfg, nil
}
