// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package queue

import "log/slog"

// PartitionAttr returns a slog attribute for the partition a record belongs to.
func PartitionAttr(partition int32) slog.Attr {
	return slog.Int64("messaging.destination.partition.id", int64(partition))
}

// OffsetAttr returns a slog attribute for a record offset.
func OffsetAttr(offset int64) slog.Attr {
	return slog.Int64("messaging.kafka.offset", offset)
}

// RecordIDAttr returns a slog attribute for a record identifier.
func RecordIDAttr(recordID string) slog.Attr {
	return slog.String("messaging.message.id", recordID)
}

// AttemptAttr returns a slog attribute for a processing or publish attempt.
func AttemptAttr(attempt uint) slog.Attr {
	return slog.Int64("messaging.message.delivery_attempt", int64(attempt))
}
