package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Durable tuneables persisted in the store's config table. Workers snapshot
// them at pool start; changing a value requires a worker restart to apply.
const (
	KeyMaxRetries         = "max-retries"
	KeyBackoffBase        = "backoff-base"
	KeyWorkerPollInterval = "worker-poll-interval"
)

// Defaults applied when a config row is absent.
const (
	DefaultMaxRetries         = 3
	DefaultBackoffBase        = 2
	DefaultWorkerPollInterval = 1.0 // seconds
)

// Keys lists every recognized durable config key.
var Keys = []string{KeyMaxRetries, KeyBackoffBase, KeyWorkerPollInterval}

// Settings is the snapshot of durable tuneables a worker pool runs with.
type Settings struct {
	MaxRetries   int
	BackoffBase  int
	PollInterval time.Duration
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxRetries:   DefaultMaxRetries,
		BackoffBase:  DefaultBackoffBase,
		PollInterval: time.Duration(DefaultWorkerPollInterval * float64(time.Second)),
	}
}

// ValidateSetting checks a key/value pair against the key's allowed domain.
// The validated value is returned in canonical string form.
func ValidateSetting(key, value string) (string, error) {
	switch key {
	case KeyMaxRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", fmt.Errorf("%w: %s must be an integer >= 0, got %q", domain.ErrInvalidConfigValue, key, value)
		}
		return strconv.Itoa(n), nil
	case KeyBackoffBase:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return "", fmt.Errorf("%w: %s must be an integer >= 1, got %q", domain.ErrInvalidConfigValue, key, value)
		}
		return strconv.Itoa(n), nil
	case KeyWorkerPollInterval:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return "", fmt.Errorf("%w: %s must be a number > 0, got %q", domain.ErrInvalidConfigValue, key, value)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidConfigKey, key)
	}
}

// ConfigReader is the slice of the store the settings snapshot needs.
type ConfigReader interface {
	ConfigGet(ctx context.Context, key string) (string, bool, error)
}

// LoadSettings reads the durable tuneables from the store, applying defaults
// for absent rows. Malformed stored values fail loudly rather than silently
// falling back.
func LoadSettings(ctx context.Context, store ConfigReader) (Settings, error) {
	s := DefaultSettings()

	if v, ok, err := store.ConfigGet(ctx, KeyMaxRetries); err != nil {
		return s, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return s, fmt.Errorf("%w: stored %s=%q", domain.ErrInvalidConfigValue, KeyMaxRetries, v)
		}
		s.MaxRetries = n
	}

	if v, ok, err := store.ConfigGet(ctx, KeyBackoffBase); err != nil {
		return s, err
	} else if ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return s, fmt.Errorf("%w: stored %s=%q", domain.ErrInvalidConfigValue, KeyBackoffBase, v)
		}
		s.BackoffBase = n
	}

	if v, ok, err := store.ConfigGet(ctx, KeyWorkerPollInterval); err != nil {
		return s, err
	} else if ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return s, fmt.Errorf("%w: stored %s=%q", domain.ErrInvalidConfigValue, KeyWorkerPollInterval, v)
		}
		s.PollInterval = time.Duration(f * float64(time.Second))
	}

	return s, nil
}
