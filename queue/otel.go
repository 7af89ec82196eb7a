// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import (
	"context"
	"log/slog"

	"github.com/lodestar-io/lodestar"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func logger() *slog.Logger {
	return lodestar.Logger("github.com/lodestar-io/lodestar/queue")
}

func meter() metric.Meter {
	return otel.Meter("github.com/lodestar-io/lodestar/queue")
}

// OTelMetrics reports engine counters through the globally registered
// OTel meter provider.
type OTelMetrics struct {
	errors             metric.Int64Counter
	retries            metric.Int64Counter
	deadLettered       metric.Int64Counter
	deadLetterFailures metric.Int64Counter
}

// NewOTelMetrics initializes the engine counters. Instrument creation
// failures are logged and the affected counter is left as a no-op.
func NewOTelMetrics() *OTelMetrics {
	log := logger()
	m := meter()

	errors, err := m.Int64Counter(
		"messaging.client.consumed.errors",
		metric.WithDescription("Total number of messages which failed processing, by error category"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn("failed to create error counter", slog.Any("error", err))
	}

	retries, err := m.Int64Counter(
		"messaging.client.consumed.retries",
		metric.WithDescription("Total number of message processing retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		log.Warn("failed to create retry counter", slog.Any("error", err))
	}

	deadLettered, err := m.Int64Counter(
		"messaging.client.dead_lettered",
		metric.WithDescription("Total number of messages routed to the dead-letter sink"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn("failed to create dead letter counter", slog.Any("error", err))
	}

	deadLetterFailures, err := m.Int64Counter(
		"messaging.client.dead_letter.publish.failures",
		metric.WithDescription("Total number of messages which could not be dead lettered"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn("failed to create dead letter failure counter", slog.Any("error", err))
	}

	return &OTelMetrics{
		errors:             errors,
		retries:            retries,
		deadLettered:       deadLettered,
		deadLetterFailures: deadLetterFailures,
	}
}

// IncrementError implements the [MetricsSink] interface.
func (m *OTelMetrics) IncrementError(category string) {
	if m.errors == nil {
		return
	}
	m.errors.Add(
		context.Background(),
		1,
		metric.WithAttributes(attribute.String("error.type", category)),
	)
}

// IncrementRetry implements the [MetricsSink] interface.
func (m *OTelMetrics) IncrementRetry() {
	if m.retries == nil {
		return
	}
	m.retries.Add(context.Background(), 1)
}

// IncrementDLQ implements the [MetricsSink] interface.
func (m *OTelMetrics) IncrementDLQ() {
	if m.deadLettered == nil {
		return
	}
	m.deadLettered.Add(context.Background(), 1)
}

// IncrementDLQPublishFailure implements the [MetricsSink] interface.
func (m *OTelMetrics) IncrementDLQPublishFailure() {
	if m.deadLetterFailures == nil {
		return
	}
	m.deadLetterFailures.Add(context.Background(), 1)
}
