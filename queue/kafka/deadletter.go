// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Provenance headers attached to every dead lettered record.
const (
	HeaderDeathEventID       = "death-event-id"
	HeaderDeathCause         = "death-cause"
	HeaderDeathAttempts      = "death-attempts"
	HeaderDeathConsumerGroup = "death-consumer-group"
	HeaderDeathTime          = "death-time"
	HeaderOriginalTopic      = "original-topic"
	HeaderOriginalPartition  = "original-partition"
	HeaderOriginalOffset     = "original-offset"
)

type recordProducer interface {
	ProduceSync(context.Context, ...*kgo.Record) kgo.ProduceResults
}

// TopicPublisher republishes failed records to a dead letter topic,
// preserving the original key, value, and headers and appending
// provenance headers describing the failure.
type TopicPublisher struct {
	log      *slog.Logger
	producer recordProducer
	topic    string
	groupID  string
}

// Publish implements the [queue.DeadLetterPublisher] interface.
func (p *TopicPublisher) Publish(ctx context.Context, msg Message, cause error, attempt uint) (bool, error) {
	record := deathRecord(p.topic, p.groupID, msg, cause, attempt)

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return false, err
	}

	p.log.InfoContext(
		ctx,
		"dead lettered record",
		TopicAttr(p.topic),
		slog.String("death.event.id", headerValue(record, HeaderDeathEventID)),
	)
	return true, nil
}

func deathRecord(topic, groupID string, msg Message, cause error, attempt uint) *kgo.Record {
	headers := make([]kgo.RecordHeader, 0, len(msg.Headers)+8)
	for _, hdr := range msg.Headers {
		headers = append(headers, kgo.RecordHeader{
			Key:   hdr.Key,
			Value: hdr.Value,
		})
	}
	headers = append(headers,
		kgo.RecordHeader{Key: HeaderDeathEventID, Value: []byte(uuid.NewString())},
		kgo.RecordHeader{Key: HeaderDeathCause, Value: []byte(cause.Error())},
		kgo.RecordHeader{Key: HeaderDeathAttempts, Value: []byte(strconv.FormatUint(uint64(attempt), 10))},
		kgo.RecordHeader{Key: HeaderDeathConsumerGroup, Value: []byte(groupID)},
		kgo.RecordHeader{Key: HeaderDeathTime, Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		kgo.RecordHeader{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kgo.RecordHeader{Key: HeaderOriginalPartition, Value: []byte(strconv.FormatInt(int64(msg.Partition), 10))},
		kgo.RecordHeader{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)

	return &kgo.Record{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}

func headerValue(record *kgo.Record, key string) string {
	for _, hdr := range record.Headers {
		if hdr.Key == key {
			return string(hdr.Value)
		}
	}
	return ""
}
