// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("will accept the defaults", func(t *testing.T) {
		cfg := Config{}.withDefaults()
		require.NoError(t, cfg.Validate())
	})

	t.Run("if the initial retry delay exceeds the max then it is rejected", func(t *testing.T) {
		cfg := Config{
			InitialRetryDelay: time.Minute,
			MaxRetryDelay:     time.Second,
		}.withDefaults()

		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "must not exceed max retry delay")
	})

	t.Run("if the backoff multiplier is below one then it is rejected", func(t *testing.T) {
		cfg := Config{
			RetryBackoffMultiplier: 0.5,
		}.withDefaults()

		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "must be at least 1")
	})

	t.Run("if multiple fields are invalid then every failure is reported", func(t *testing.T) {
		cfg := Config{
			InitialRetryDelay:      -time.Second,
			MaxRetryDelay:          -time.Second,
			RetryBackoffMultiplier: 0.1,
			CommitTimeout:          -time.Second,
			ShutdownTimeout:        -time.Second,
		}

		err := cfg.Validate()
		require.Error(t, err)
		require.Contains(t, err.Error(), "initial retry delay")
		require.Contains(t, err.Error(), "backoff multiplier")
		require.Contains(t, err.Error(), "commit timeout")
		require.Contains(t, err.Error(), "shutdown timeout")
	})
}

func TestConfig_withDefaults(t *testing.T) {
	t.Run("will fill in every zero valued tuning field", func(t *testing.T) {
		cfg := Config{}.withDefaults()

		require.Equal(t, DefaultInitialRetryDelay, cfg.InitialRetryDelay)
		require.Equal(t, DefaultMaxRetryDelay, cfg.MaxRetryDelay)
		require.Equal(t, DefaultRetryBackoffMultiplier, cfg.RetryBackoffMultiplier)
		require.Equal(t, DefaultCommitTimeout, cfg.CommitTimeout)
		require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	})

	t.Run("will leave explicitly set fields alone", func(t *testing.T) {
		cfg := Config{
			MaxRetries:        5,
			InitialRetryDelay: 100 * time.Millisecond,
		}.withDefaults()

		require.Equal(t, uint(5), cfg.MaxRetries)
		require.Equal(t, 100*time.Millisecond, cfg.InitialRetryDelay)
	})
}
