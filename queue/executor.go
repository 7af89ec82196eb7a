// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// task is the handle returned for each submitted unit of work.
type task struct {
	done chan struct{}
}

// Done is closed once the work has finished.
func (t *task) Done() <-chan struct{} {
	return t.done
}

// executor runs submitted work asynchronously and supports draining
// in-flight work with a deadline during shutdown.
type executor struct {
	wg conc.WaitGroup
}

func newExecutor() *executor {
	return &executor{}
}

// submit schedules f and returns a handle for it. It never blocks.
func (e *executor) submit(f func()) *task {
	t := &task{done: make(chan struct{})}
	e.wg.Go(func() {
		defer close(t.done)
		f()
	})
	return t
}

// drain waits for all in-flight work to finish. If ctx expires first it
// returns ctx's error and the remaining work is left to finish on its own.
// Any panic recovered from a task is returned for reporting.
func (e *executor) drain(ctx context.Context) (*panics.Recovered, error) {
	done := make(chan struct{})

	var recovered *panics.Recovered
	go func() {
		defer close(done)
		recovered = e.wg.WaitAndRecover()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return recovered, nil
	}
}
