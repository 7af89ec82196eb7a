// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"errors"
	"fmt"
	"time"
)

// Default tuning values applied by [Config.withDefaults].
const (
	DefaultInitialRetryDelay      = 1 * time.Second
	DefaultMaxRetryDelay          = 30 * time.Second
	DefaultRetryBackoffMultiplier = 2.0
	DefaultCommitTimeout          = 10 * time.Second
	DefaultShutdownTimeout        = 30 * time.Second
)

// Config holds the tuning knobs of an [Engine]. It is read once during
// [NewEngine] and never mutated afterwards.
type Config struct {
	// MaxRetries bounds how often a transiently failing message is
	// reprocessed before being dead lettered. Zero means a single
	// attempt with no retries.
	MaxRetries uint

	// InitialRetryDelay is the delay before the first retry.
	InitialRetryDelay time.Duration

	// MaxRetryDelay caps the exponentially growing retry delay.
	MaxRetryDelay time.Duration

	// RetryBackoffMultiplier is the exponential growth factor of the
	// retry delay. Must be at least 1.
	RetryBackoffMultiplier float64

	// CommitTimeout bounds each offset commit round trip.
	CommitTimeout time.Duration

	// EnableDLQFallback invokes the fallback hook once dead letter
	// publishing is exhausted.
	EnableDLQFallback bool

	// DLQMaxRetries bounds how often a failed dead letter publish is
	// retried. Zero means a single publish attempt.
	DLQMaxRetries uint

	// ShutdownTimeout bounds how long [Engine.Shutdown] waits for
	// in-flight tasks to drain.
	ShutdownTimeout time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.InitialRetryDelay <= 0 {
		cfg.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.RetryBackoffMultiplier == 0 {
		cfg.RetryBackoffMultiplier = DefaultRetryBackoffMultiplier
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultCommitTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return cfg
}

// Validate ensures the configuration is coherent, otherwise it returns an error.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.InitialRetryDelay <= 0 {
		errs = append(errs, errors.New("queue: initial retry delay must be positive"))
	}
	if cfg.MaxRetryDelay <= 0 {
		errs = append(errs, errors.New("queue: max retry delay must be positive"))
	}
	if cfg.InitialRetryDelay > cfg.MaxRetryDelay {
		errs = append(errs, fmt.Errorf(
			"queue: initial retry delay (%s) must not exceed max retry delay (%s)",
			cfg.InitialRetryDelay,
			cfg.MaxRetryDelay,
		))
	}
	if cfg.RetryBackoffMultiplier < 1.0 {
		errs = append(errs, fmt.Errorf(
			"queue: retry backoff multiplier (%g) must be at least 1",
			cfg.RetryBackoffMultiplier,
		))
	}
	if cfg.CommitTimeout <= 0 {
		errs = append(errs, errors.New("queue: commit timeout must be positive"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("queue: shutdown timeout must be positive"))
	}
	return errors.Join(errs...)
}
