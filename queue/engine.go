// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lodestar-io/lodestar/health"
)

// Record is a single message received from a partitioned log, along with
// the coordinates needed to commit it.
type Record[T any] struct {
	Partition int32
	Offset    int64
	Message   T
}

// Engine consumes records from a partitioned log with at-least-once
// semantics. Records from the same partition are processed strictly in
// receive order while distinct partitions proceed concurrently. Failed
// records are retried with capped exponential backoff and dead lettered
// once retries are exhausted. Settled offsets accumulate in a buffer which
// is flushed at the top of every Receive and once more during Shutdown, so
// commits batch up and piggyback on new arrivals instead of firing once
// per record.
//
// No processing, dead lettering, or commit error ever escapes the engine:
// every failure is logged, counted, and resolved into either a committed
// offset or a redelivery.
type Engine[T any] struct {
	log *slog.Logger

	cfg       Config
	processor Processor[T]
	dlq       *deadLetterPipeline[T]
	fallback  Fallback[T]
	metrics   MetricsSink

	state   *shutdownState
	drain   chan struct{}
	healthy *health.Binary

	locks   *lockRegistry
	exec    *executor
	commits *commitBuffer

	backoff backoff
	sleeper sleeper

	// commitMu serializes flushes so an older snapshot can never land
	// after a newer one and regress the committed offset.
	commitMu sync.Mutex

	// submitMu orders incoming work against the drain. A receive holds
	// the read side from its shutdown check through submission, and
	// Shutdown takes the write side before waiting on the executor, so a
	// task is never added once the drain wait has begun.
	submitMu sync.RWMutex

	// lastClient remembers the most recent client seen by Receive so
	// Shutdown can pause fetching and issue the final flush.
	lastClient atomic.Value
}

// clientBox wraps a LogClient so differing concrete types can be stored
// in an atomic.Value.
type clientBox struct {
	client LogClient
}

// EngineOption configures optional [Engine] behaviour.
type EngineOption[T any] func(*Engine[T])

// WithMetrics sets the sink engine counters are reported to. By default
// counters are discarded.
func WithMetrics[T any](m MetricsSink) EngineOption[T] {
	return func(e *Engine[T]) {
		e.metrics = m
	}
}

// WithFallback sets the last resort hook invoked when dead letter
// publishing is exhausted. It is only consulted when
// [Config.EnableDLQFallback] is set.
func WithFallback[T any](f Fallback[T]) EngineOption[T] {
	return func(e *Engine[T]) {
		e.fallback = f
	}
}

// NewEngine validates cfg and initializes an [Engine]. Zero valued tuning
// fields are replaced with defaults before validation.
func NewEngine[T any](processor Processor[T], publisher DeadLetterPublisher[T], cfg Config, opts ...EngineOption[T]) (*Engine[T], error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine[T]{
		log:       logger(),
		cfg:       cfg,
		processor: processor,
		metrics:   noopMetrics{},
		state:     &shutdownState{},
		drain:     make(chan struct{}),
		healthy:   &health.Binary{},
		locks:     newLockRegistry(),
		exec:      newExecutor(),
		commits:   newCommitBuffer(),
		backoff: backoff{
			initial:    cfg.InitialRetryDelay,
			max:        cfg.MaxRetryDelay,
			multiplier: cfg.RetryBackoffMultiplier,
		},
	}
	e.sleeper = sleeper{
		state: e.state,
		drain: e.drain,
	}
	for _, opt := range opts {
		opt(e)
	}

	var fallback Fallback[T]
	if cfg.EnableDLQFallback {
		fallback = e.fallback
	}
	e.dlq = &deadLetterPipeline[T]{
		log:        e.log,
		publisher:  publisher,
		fallback:   fallback,
		maxRetries: cfg.DLQMaxRetries,
		backoff:    e.backoff,
		sleeper:    &e.sleeper,
		metrics:    e.metrics,
	}

	e.healthy.MarkHealthy()
	return e, nil
}

// Readiness reports whether the engine is accepting new records. It turns
// unhealthy as soon as [Engine.Shutdown] begins.
func (e *Engine[T]) Readiness() health.Monitor {
	return e.healthy
}

// Receive schedules rec for processing. It never blocks on processing and
// never returns an error: all failures are resolved internally.
//
// Records received after [Engine.Shutdown] has begun are silently dropped
// without committing, so the log redelivers them to the next consumer.
//
// Receive must be called from a single goroutine per partition, which is
// the natural shape of a poll loop.
func (e *Engine[T]) Receive(ctx context.Context, client LogClient, rec Record[T]) {
	e.submitMu.RLock()
	defer e.submitMu.RUnlock()

	if e.state.stopping() {
		return
	}

	e.lastClient.Store(clientBox{client: client})

	// New arrivals carry the previously settled offsets out with them.
	e.flush(ctx, client)

	// Slots are reserved on the caller goroutine so the wait chain within
	// a partition matches receive order exactly.
	prev, done := e.locks.get(rec.Partition).reserve()

	// Cancellation of the poll loop must not abort a record that is
	// already being processed, so the task detaches from ctx while
	// keeping its values for tracing and logging.
	taskCtx := context.WithoutCancel(ctx)

	e.exec.submit(func() {
		defer close(done)

		if prev != nil {
			<-prev
		}

		e.runTask(taskCtx, rec)
	})
}

// runTask drives a single record through processing, retries, dead
// lettering, and commit bookkeeping.
func (e *Engine[T]) runTask(ctx context.Context, rec Record[T]) {
	log := e.log.With(
		PartitionAttr(rec.Partition),
		OffsetAttr(rec.Offset),
	)

	recordID, err := e.processor.RecordID(rec.Message)
	if err != nil {
		log.ErrorContext(ctx, "failed to derive record id", slog.Any("error", err))
		e.metrics.IncrementError(ErrorCategoryUnexpected)

		// The failure may have been transient, so the id is re-derived
		// leniently for the dead letter report.
		reportID, _ := e.processor.RecordID(rec.Message)

		if e.dlq.route(ctx, rec.Message, err, 0, reportID) {
			e.settle(rec)
		}
		return
	}
	log = log.With(RecordIDAttr(recordID))

	var attempt uint
	for {
		err = e.processor.Process(ctx, rec.Message)
		if err == nil {
			e.settle(rec)
			return
		}

		switch classify(err) {
		case classValidation:
			log.ErrorContext(ctx, "message failed validation", slog.Any("error", err))
			e.metrics.IncrementError(ErrorCategoryValidation)

			// Validation failures are terminal no matter how many
			// transient retries preceded them.
			attempt = 0
		case classPermanent:
			log.ErrorContext(ctx, "message is permanently unprocessable", slog.Any("error", err))
			e.metrics.IncrementError(ErrorCategoryPermanent)

			attempt = 0
		default:
			if attempt < e.cfg.MaxRetries {
				attempt += 1
				e.metrics.IncrementRetry()
				log.WarnContext(
					ctx,
					"message processing failed, retrying",
					AttemptAttr(attempt),
					slog.Any("error", err),
				)
				if !e.sleeper.sleep(ctx, e.backoff.delay(attempt)) {
					log.InfoContext(ctx, "abandoning retries due to shutdown", AttemptAttr(attempt))
					return
				}
				continue
			}

			log.ErrorContext(
				ctx,
				"message processing failed after exhausting retries",
				AttemptAttr(attempt),
				slog.Any("error", err),
			)
			e.metrics.IncrementError(ErrorCategoryProcessing)
		}

		if e.dlq.route(ctx, rec.Message, err, attempt, recordID) {
			e.settle(rec)
		}
		return
	}
}

// settle marks rec as consumed. The offset stays buffered until the next
// Receive or Shutdown flushes it.
func (e *Engine[T]) settle(rec Record[T]) {
	e.commits.record(rec.Partition, rec.Offset+1)
}

// flush commits all pending offsets. Commit conflicts are retried exactly
// once; on any final failure the offsets are restored so a later flush can
// pick them up again.
func (e *Engine[T]) flush(ctx context.Context, client LogClient) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	offsets := e.commits.take()
	if len(offsets) == 0 {
		return
	}

	err := client.Commit(ctx, offsets, e.cfg.CommitTimeout)
	if errors.Is(err, ErrCommitConflict) {
		e.log.WarnContext(ctx, "commit hit a conflict, retrying once", slog.Any("error", err))
		err = client.Commit(ctx, offsets, e.cfg.CommitTimeout)
	}
	if err != nil {
		e.commits.restore(offsets)
		e.log.ErrorContext(ctx, "failed to commit offsets", slog.Any("error", err))
		return
	}

	e.log.DebugContext(ctx, "committed offsets", slog.Int("partitions", len(offsets)))
}

// Shutdown drains the engine: new records are refused, in-flight records
// run to completion (retry waits are cut short), and a final commit flush
// is issued. It is idempotent and returns immediately on repeat calls.
//
// The error is non-nil only if in-flight records failed to drain within
// [Config.ShutdownTimeout]; even then offsets already settled have been
// flushed.
func (e *Engine[T]) Shutdown(ctx context.Context) error {
	if !e.state.beginDrain() {
		return nil
	}

	e.healthy.MarkUnhealthy()
	close(e.drain)

	e.log.InfoContext(ctx, "shutting down, draining in-flight messages")

	client := e.loadClient()
	if client != nil {
		client.Wakeup()

		partitions, err := client.Assignment()
		if err != nil {
			e.log.WarnContext(ctx, "failed to inspect partition assignment", slog.Any("error", err))
		} else if err := client.Pause(partitions); err != nil {
			e.log.WarnContext(ctx, "failed to pause fetching", slog.Any("error", err))
		}
	}

	// Receives that raced the drain flag have finished submitting once the
	// write lock is acquired; later ones observe the flag and drop out.
	e.submitMu.Lock()
	e.submitMu.Unlock()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ShutdownTimeout)
	defer cancel()

	recovered, drainErr := e.exec.drain(drainCtx)
	if recovered != nil {
		e.log.ErrorContext(ctx, "recovered panic from in-flight message", slog.Any("error", recovered.AsError()))
	}
	if drainErr != nil {
		e.log.ErrorContext(ctx, "in-flight messages did not drain in time", slog.Any("error", drainErr))
	}

	if client != nil {
		e.flush(context.WithoutCancel(ctx), client)
	}

	e.state.markStopped()
	e.log.InfoContext(ctx, "shutdown complete")
	return drainErr
}

func (e *Engine[T]) loadClient() LogClient {
	v := e.lastClient.Load()
	if v == nil {
		return nil
	}
	return v.(clientBox).client
}
