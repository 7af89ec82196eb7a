// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/lodestar-io/lodestar"
	"github.com/lodestar-io/lodestar/queue"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

func logger() *slog.Logger {
	return lodestar.Logger("github.com/lodestar-io/lodestar/queue/kafka")
}

func tracer() trace.Tracer {
	return otel.Tracer("github.com/lodestar-io/lodestar/queue/kafka")
}

func meter() metric.Meter {
	return otel.Meter("github.com/lodestar-io/lodestar/queue/kafka")
}

// instrumentedProcessor wraps a processor with a consumer span and a
// processed-messages counter per record.
type instrumentedProcessor struct {
	inner             queue.Processor[Message]
	tracer            trace.Tracer
	messagesProcessed metric.Int64Counter
}

func instrumentProcessor(log *slog.Logger, inner queue.Processor[Message]) instrumentedProcessor {
	messagesProcessed, err := meter().Int64Counter(
		"messaging.client.messages.processed",
		metric.WithDescription("Total number of Kafka messages processed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		log.Warn("failed to create messages processed metric", slog.Any("error", err))
	}

	return instrumentedProcessor{
		inner:             inner,
		tracer:            tracer(),
		messagesProcessed: messagesProcessed,
	}
}

// Process implements the [queue.Processor] interface.
func (p instrumentedProcessor) Process(ctx context.Context, msg Message) error {
	topicAttr := semconv.MessagingDestinationName(msg.Topic)
	partitionIDAttr := semconv.MessagingDestinationPartitionID(strconv.FormatInt(int64(msg.Partition), 10))
	spanOpts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeProcess,
			topicAttr,
			partitionIDAttr,
			semconv.MessagingKafkaOffset(int(msg.Offset)),
		),
	}

	// kotel stores the producer span on the record context which the
	// poll loop carries through to here.
	if s := trace.SpanContextFromContext(ctx); s.IsValid() && s.IsRemote() {
		spanOpts = append(spanOpts, trace.WithLinks(trace.Link{SpanContext: s}))
	}

	spanCtx, span := p.tracer.Start(ctx, "process "+msg.Topic, spanOpts...)
	defer span.End()

	err := p.inner.Process(spanCtx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if p.messagesProcessed != nil {
		p.messagesProcessed.Add(spanCtx, 1, metric.WithAttributes(
			semconv.MessagingSystemKafka,
			topicAttr,
			partitionIDAttr,
			attribute.String("messaging.process.status", processStatus(err)),
		))
	}

	return err
}

// RecordID implements the [queue.Processor] interface.
func (p instrumentedProcessor) RecordID(msg Message) (string, error) {
	return p.inner.RecordID(msg)
}

func processStatus(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
