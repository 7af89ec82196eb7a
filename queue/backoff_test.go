// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_Delay(t *testing.T) {
	t.Run("will return the initial delay for the first retry", func(t *testing.T) {
		b := backoff{
			initial:    time.Second,
			max:        30 * time.Second,
			multiplier: 2.0,
		}

		require.Equal(t, time.Second, b.delay(1))
	})

	t.Run("will grow exponentially", func(t *testing.T) {
		b := backoff{
			initial:    time.Second,
			max:        30 * time.Second,
			multiplier: 2.0,
		}

		require.Equal(t, 2*time.Second, b.delay(2))
		require.Equal(t, 4*time.Second, b.delay(3))
		require.Equal(t, 8*time.Second, b.delay(4))
	})

	t.Run("will cap at the max delay", func(t *testing.T) {
		b := backoff{
			initial:    time.Second,
			max:        30 * time.Second,
			multiplier: 2.0,
		}

		require.Equal(t, 30*time.Second, b.delay(6))
		require.Equal(t, 30*time.Second, b.delay(100))
	})

	t.Run("will stay constant with a multiplier of one", func(t *testing.T) {
		b := backoff{
			initial:    time.Second,
			max:        30 * time.Second,
			multiplier: 1.0,
		}

		require.Equal(t, time.Second, b.delay(1))
		require.Equal(t, time.Second, b.delay(7))
	})

	t.Run("if the initial delay exceeds the max then the max wins", func(t *testing.T) {
		b := backoff{
			initial:    time.Minute,
			max:        10 * time.Second,
			multiplier: 2.0,
		}

		require.Equal(t, 10*time.Second, b.delay(1))
	})
}

func TestSleeper_Sleep(t *testing.T) {
	t.Run("will wait out the full delay while running", func(t *testing.T) {
		state := &shutdownState{}
		s := sleeper{
			state: state,
			drain: make(chan struct{}),
		}

		start := time.Now()
		ok := s.sleep(context.Background(), 10*time.Millisecond)
		require.True(t, ok)
		require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("if shutdown already began then it will not wait at all", func(t *testing.T) {
		state := &shutdownState{}
		state.beginDrain()

		s := sleeper{
			state: state,
			drain: make(chan struct{}),
		}

		start := time.Now()
		ok := s.sleep(context.Background(), time.Minute)
		require.False(t, ok)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("if shutdown begins mid wait then the wait is cut short", func(t *testing.T) {
		state := &shutdownState{}
		drain := make(chan struct{})
		s := sleeper{
			state: state,
			drain: drain,
		}

		go func() {
			time.Sleep(5 * time.Millisecond)
			state.beginDrain()
			close(drain)
		}()

		start := time.Now()
		ok := s.sleep(context.Background(), time.Minute)
		require.False(t, ok)
		require.Less(t, time.Since(start), time.Minute)
	})

	t.Run("if the context is cancelled then the wait is cut short", func(t *testing.T) {
		state := &shutdownState{}
		s := sleeper{
			state: state,
			drain: make(chan struct{}),
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ok := s.sleep(ctx, time.Minute)
		require.False(t, ok)
	})
}
