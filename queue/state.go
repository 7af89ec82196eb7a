// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import "sync/atomic"

const (
	stateRunning int32 = iota
	stateDraining
	stateStopped
)

// shutdownState is the engine wide lifecycle flag. It transitions
// running -> draining -> stopped exactly once and is never reversed.
// It is read before accepting new records and at every retry delay boundary.
type shutdownState struct {
	v atomic.Int32
}

func (s *shutdownState) running() bool {
	return s.v.Load() == stateRunning
}

// stopping reports whether shutdown has begun.
func (s *shutdownState) stopping() bool {
	return s.v.Load() != stateRunning
}

// beginDrain transitions running -> draining. It reports false if
// shutdown had already begun, making shutdown idempotent.
func (s *shutdownState) beginDrain() bool {
	return s.v.CompareAndSwap(stateRunning, stateDraining)
}

func (s *shutdownState) markStopped() {
	s.v.Store(stateStopped)
}
