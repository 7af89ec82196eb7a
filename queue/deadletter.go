// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"log/slog"
)

// deadLetterPipeline routes messages that exhausted their processing
// attempts to a dead-letter publisher, retrying the publish itself with
// the same backoff schedule as processing.
type deadLetterPipeline[T any] struct {
	log        *slog.Logger
	publisher  DeadLetterPublisher[T]
	fallback   Fallback[T]
	maxRetries uint
	backoff    backoff
	sleeper    *sleeper
	metrics    MetricsSink
}

// route attempts to hand msg to the dead-letter publisher. It reports
// whether the message is settled, meaning its offset may be committed.
//
// A message is settled when the publisher accepts it, or when every
// publish attempt failed and the fallback took ownership. When neither
// happens the offset is withheld so the message is redelivered.
func (p *deadLetterPipeline[T]) route(ctx context.Context, msg T, cause error, attempt uint, recordID string) bool {
	var lastErr error
	for publishAttempt := uint(0); publishAttempt <= p.maxRetries; publishAttempt++ {
		if publishAttempt > 0 {
			if !p.sleeper.sleep(ctx, p.backoff.delay(publishAttempt)) {
				p.log.InfoContext(
					ctx,
					"abandoning dead-letter publishing due to shutdown, message will be redelivered",
					RecordIDAttr(recordID),
					AttemptAttr(publishAttempt),
				)
				return false
			}
		}

		published, err := p.publisher.Publish(ctx, msg, cause, attempt)
		if err == nil && published {
			p.metrics.IncrementDLQ()
			return true
		}
		if err == nil {
			err = errPublishRejected
		}
		lastErr = err
		p.metrics.IncrementDLQPublishFailure()

		p.log.ErrorContext(
			ctx,
			"failed to publish message to dead-letter queue",
			RecordIDAttr(recordID),
			AttemptAttr(publishAttempt),
			slog.Any("error", err),
		)
	}

	if p.fallback == nil {
		p.log.ErrorContext(
			ctx,
			"dead-letter publishing exhausted and no fallback is configured, message will be redelivered",
			RecordIDAttr(recordID),
			slog.Any("error", lastErr),
		)
		return false
	}

	if p.fallback(ctx, msg, cause, attempt, recordID) {
		p.log.WarnContext(
			ctx,
			"dead-letter publishing exhausted, message handled by fallback",
			RecordIDAttr(recordID),
		)
		return true
	}

	p.log.ErrorContext(
		ctx,
		"dead-letter publishing exhausted and fallback declined, message will be redelivered",
		RecordIDAttr(recordID),
		slog.Any("error", lastErr),
	)
	return false
}
