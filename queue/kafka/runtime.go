// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lodestar-io/lodestar"
	"github.com/lodestar-io/lodestar/queue"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"github.com/twmb/franz-go/plugin/kslog"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// Runtime consumes a single Kafka topic within a consumer group and feeds
// every record into a [queue.Engine]. Offsets are committed manually and
// auto commit is disabled, so a record is only ever committed once the
// engine has settled it.
type Runtime struct {
	log *slog.Logger

	brokers              []string
	groupID              string
	topic                string
	deadLetterTopic      string
	sessionTimeout       time.Duration
	rebalanceTimeout     time.Duration
	fetchMaxBytes        int32
	maxConcurrentFetches int
	tlsConfig            *tls.Config

	engineConfig queue.Config
	processor    queue.Processor[Message]
	fallback     queue.Fallback[Message]
}

// Run implements the [app.Runtime] interface. It blocks until ctx is
// cancelled, then drains the engine and returns.
func (r *Runtime) Run(ctx context.Context) error {
	// The poll loop outlives ctx so in-flight records can settle during
	// the drain. It is cut by the engine waking the poller.
	pollCtx, wake := context.WithCancel(context.WithoutCancel(ctx))
	defer wake()

	adapter := &clientAdapter{
		topic: r.topic,
		wake:  wake,
	}

	clientOpts := []kgo.Opt{
		kgo.WithLogger(kslog.New(lodestar.Logger("github.com/twmb/franz-go/pkg/kgo"))),
		kgo.WithHooks(
			kotel.NewTracer(
				kotel.TracerProvider(otel.GetTracerProvider()),
				kotel.TracerPropagator(otel.GetTextMapPropagator()),
				kotel.LinkSpans(),
				kotel.ConsumerGroup(r.groupID),
			),
			kotel.NewMeter(
				kotel.MeterProvider(otel.GetMeterProvider()),
				kotel.WithMergedConnectsMeter(),
			),
		),
		kgo.SeedBrokers(r.brokers...),
		kgo.ConsumerGroup(r.groupID),
		kgo.ConsumeTopics(r.topic),
		kgo.Balancers(kgo.CooperativeStickyBalancer()),
		kgo.SessionTimeout(r.sessionTimeout),
		kgo.RebalanceTimeout(r.rebalanceTimeout),
		kgo.FetchMaxBytes(r.fetchMaxBytes),
		kgo.MaxConcurrentFetches(r.maxConcurrentFetches),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsAssigned(adapter.onAssigned),
		kgo.OnPartitionsRevoked(adapter.onRemoved),
		kgo.OnPartitionsLost(adapter.onRemoved),
	}
	if r.tlsConfig != nil {
		clientOpts = append(clientOpts, kgo.DialTLSConfig(r.tlsConfig))
	}

	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return fmt.Errorf("kafka: failed to create client: %w", err)
	}
	defer client.Close()
	adapter.client = client

	publisher := &TopicPublisher{
		log:      r.log,
		producer: client,
		topic:    r.deadLetterTopic,
		groupID:  r.groupID,
	}

	engine, err := queue.NewEngine(
		r.processor,
		publisher,
		r.engineConfig,
		queue.WithMetrics[Message](queue.NewOTelMetrics()),
		queue.WithFallback[Message](r.fallback),
	)
	if err != nil {
		return err
	}

	eg := new(errgroup.Group)
	eg.Go(func() error {
		<-ctx.Done()
		r.log.InfoContext(ctx, "signal received, draining consumer")
		return engine.Shutdown(context.WithoutCancel(ctx))
	})
	eg.Go(func() error {
		return r.poll(pollCtx, client, adapter, engine)
	})
	return eg.Wait()
}

func (r *Runtime) poll(ctx context.Context, client *kgo.Client, adapter *clientAdapter, engine *queue.Engine[Message]) error {
	for {
		if ctx.Err() != nil {
			r.log.InfoContext(ctx, "stopped polling")
			return nil
		}

		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			r.log.InfoContext(ctx, "stopped polling, client closed")
			return nil
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.log.ErrorContext(
				ctx,
				"failed to fetch records",
				queue.PartitionAttr(partition),
				slog.Any("error", err),
			)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			// record.Context carries the kotel producer span.
			recCtx := record.Context
			if recCtx == nil {
				recCtx = ctx
			}

			engine.Receive(recCtx, adapter, queue.Record[Message]{
				Partition: record.Partition,
				Offset:    record.Offset,
				Message:   recordToMessage(record),
			})
		})
	}
}

func recordToMessage(record *kgo.Record) Message {
	headers := make([]Header, len(record.Headers))
	for i, hdr := range record.Headers {
		headers[i] = Header{
			Key:   hdr.Key,
			Value: hdr.Value,
		}
	}

	return Message{
		Key:       record.Key,
		Value:     record.Value,
		Headers:   headers,
		Timestamp: record.Timestamp,
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
	}
}
