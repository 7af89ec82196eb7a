// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"math"
	"time"
)

// backoff computes capped exponential retry delays. It is shared by the
// processing retry loop and the dead letter publish retry loop, which use
// the same delay shape with different attempt ceilings.
type backoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

// delay returns the wait before retrying after the given attempt:
//
//	min(initial × multiplier^(attempt-1), max)
func (b backoff) delay(attempt uint) time.Duration {
	if attempt <= 1 {
		return min(b.initial, b.max)
	}

	d := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
	if d >= float64(b.max) || math.IsInf(d, 1) {
		return b.max
	}
	return time.Duration(d)
}

// sleeper waits out retry delays while staying promptly interruptible by
// the engine wide shutdown signal. The shutdown state is polled immediately
// before and after each wait; a running task is never forcibly interrupted.
type sleeper struct {
	state *shutdownState
	drain <-chan struct{}
}

// sleep waits for d to elapse. It reports false if shutdown began before,
// during, or after the wait, or if ctx was cancelled.
func (s sleeper) sleep(ctx context.Context, d time.Duration) bool {
	if s.state.stopping() {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.drain:
		return false
	case <-timer.C:
	}

	return !s.state.stopping()
}
