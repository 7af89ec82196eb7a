// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type mockProducer struct {
	produced []*kgo.Record
	err      error
}

func (p *mockProducer) ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults {
	p.produced = append(p.produced, records...)

	results := make(kgo.ProduceResults, len(records))
	for i, record := range records {
		results[i] = kgo.ProduceResult{Record: record, Err: p.err}
	}
	return results
}

func TestTopicPublisher_Publish(t *testing.T) {
	t.Run("will preserve the original record and append provenance headers", func(t *testing.T) {
		producer := &mockProducer{}
		publisher := &TopicPublisher{
			log:      slog.New(slog.DiscardHandler),
			producer: producer,
			topic:    "orders.dlq",
			groupID:  "ingest",
		}

		msg := Message{
			Key:   []byte("key-1"),
			Value: []byte("hello"),
			Headers: []Header{
				{Key: "content-type", Value: []byte("application/json")},
			},
			Topic:     "orders",
			Partition: 3,
			Offset:    42,
		}

		published, err := publisher.Publish(context.Background(), msg, errors.New("downstream is on fire"), 2)
		require.NoError(t, err)
		require.True(t, published)

		require.Len(t, producer.produced, 1)
		record := producer.produced[0]
		require.Equal(t, "orders.dlq", record.Topic)
		require.Equal(t, []byte("key-1"), record.Key)
		require.Equal(t, []byte("hello"), record.Value)

		require.Equal(t, "application/json", headerValue(record, "content-type"))
		require.Equal(t, "downstream is on fire", headerValue(record, HeaderDeathCause))
		require.Equal(t, "2", headerValue(record, HeaderDeathAttempts))
		require.Equal(t, "ingest", headerValue(record, HeaderDeathConsumerGroup))
		require.Equal(t, "orders", headerValue(record, HeaderOriginalTopic))
		require.Equal(t, "3", headerValue(record, HeaderOriginalPartition))
		require.Equal(t, "42", headerValue(record, HeaderOriginalOffset))
		require.NotEmpty(t, headerValue(record, HeaderDeathTime))

		eventID, err := uuid.Parse(headerValue(record, HeaderDeathEventID))
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, eventID)
	})

	t.Run("will assign a unique event id to every publish", func(t *testing.T) {
		producer := &mockProducer{}
		publisher := &TopicPublisher{
			log:      slog.New(slog.DiscardHandler),
			producer: producer,
			topic:    "orders.dlq",
			groupID:  "ingest",
		}

		cause := errors.New("downstream is on fire")
		_, err := publisher.Publish(context.Background(), Message{}, cause, 0)
		require.NoError(t, err)
		_, err = publisher.Publish(context.Background(), Message{}, cause, 0)
		require.NoError(t, err)

		require.NotEqual(
			t,
			headerValue(producer.produced[0], HeaderDeathEventID),
			headerValue(producer.produced[1], HeaderDeathEventID),
		)
	})

	t.Run("if producing fails then the failure is reported", func(t *testing.T) {
		cause := errors.New("dlq topic unavailable")
		publisher := &TopicPublisher{
			log:      slog.New(slog.DiscardHandler),
			producer: &mockProducer{err: cause},
			topic:    "orders.dlq",
			groupID:  "ingest",
		}

		published, err := publisher.Publish(context.Background(), Message{}, errors.New("boom"), 0)
		require.ErrorIs(t, err, cause)
		require.False(t, published)
	})
}
