// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"time"
)

// Processor implements the business logic for processing message(s), T.
//
// Process errors are classified with [ValidationError] and [PermanentError];
// any other error is treated as transient and retried.
type Processor[T any] interface {
	// Process handles a single message. It is never invoked concurrently
	// for messages from the same partition.
	Process(context.Context, T) error

	// RecordID derives a stable identifier for the message, used for dead
	// letter reporting. It may fail for malformed messages.
	RecordID(T) (string, error)
}

// ProcessorFuncs is an adapter to allow the use of ordinary functions as a [Processor].
type ProcessorFuncs[T any] struct {
	ProcessFunc  func(context.Context, T) error
	RecordIDFunc func(T) (string, error)
}

// Process implements the [Processor] interface.
func (p ProcessorFuncs[T]) Process(ctx context.Context, msg T) error {
	return p.ProcessFunc(ctx, msg)
}

// RecordID implements the [Processor] interface.
func (p ProcessorFuncs[T]) RecordID(msg T) (string, error) {
	if p.RecordIDFunc == nil {
		return "", nil
	}
	return p.RecordIDFunc(msg)
}

// DeadLetterPublisher delivers messages which exhausted processing retries
// to a secondary sink.
type DeadLetterPublisher[T any] interface {
	// Publish hands the failed message to the sink along with the error
	// which caused it to fail and how many processing retries were spent.
	// It reports whether the sink accepted the message.
	Publish(ctx context.Context, msg T, cause error, attempt uint) (bool, error)
}

// DeadLetterPublisherFunc is an adapter to allow the use of ordinary
// functions as [DeadLetterPublisher]s.
type DeadLetterPublisherFunc[T any] func(ctx context.Context, msg T, cause error, attempt uint) (bool, error)

// Publish implements the [DeadLetterPublisher] interface.
func (f DeadLetterPublisherFunc[T]) Publish(ctx context.Context, msg T, cause error, attempt uint) (bool, error) {
	return f(ctx, msg, cause, attempt)
}

// Fallback is a last resort hook invoked when dead lettering itself failed
// repeatedly. Returning true acknowledges the message as handled, allowing
// its offset to be committed. Returning false drops the message without
// acknowledgement so it is redelivered after a restart.
type Fallback[T any] func(ctx context.Context, msg T, cause error, attempt uint, recordID string) bool

// Error counter categories reported through [MetricsSink.IncrementError].
const (
	// ErrorCategoryUnexpected marks records whose identity could not be derived.
	ErrorCategoryUnexpected = "unexpected"

	// ErrorCategoryValidation marks records rejected as invalid input.
	ErrorCategoryValidation = "validation"

	// ErrorCategoryPermanent marks records with structurally unprocessable payloads.
	ErrorCategoryPermanent = "processing_permanent"

	// ErrorCategoryProcessing marks records which exhausted transient retries.
	ErrorCategoryProcessing = "processing"
)

// MetricsSink receives counters emitted by the engine.
//
// Implementations must be safe for concurrent use. [OTelMetrics] reports
// them through the globally registered OTel meter provider.
type MetricsSink interface {
	IncrementError(category string)
	IncrementRetry()
	IncrementDLQ()
	IncrementDLQPublishFailure()
}

type noopMetrics struct{}

func (noopMetrics) IncrementError(string)      {}
func (noopMetrics) IncrementRetry()            {}
func (noopMetrics) IncrementDLQ()              {}
func (noopMetrics) IncrementDLQPublishFailure() {}

// LogClient is the pull based consumer client records are received from.
//
// The engine only ever commits, pauses, and inspects assignment through
// this interface. The poll loop, partition assignment, and rebalance
// protocol are owned by the implementation.
type LogClient interface {
	// Commit durably records, per partition, the next offset to resume
	// from. Implementations should return [ErrCommitConflict] (possibly
	// wrapped) for conflicts which are worth retrying exactly once.
	Commit(ctx context.Context, offsets map[int32]int64, timeout time.Duration) error

	// Pause stops fetching from the given partitions.
	Pause(partitions []int32) error

	// Assignment returns the partitions currently assigned to this client.
	Assignment() ([]int32, error)

	// Wakeup interrupts a blocked poll.
	Wakeup()
}
