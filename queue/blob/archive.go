// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package blob provides an object storage sink for dead lettered
// messages.
//
// The [Archive] can serve as the primary dead letter sink, or as the
// fallback of last resort: when the dead letter sink itself is
// unavailable, losing the message or blocking a partition forever are
// both bad options, so the message is written to an S3 compatible bucket
// instead, acknowledging it so the partition keeps moving while the
// payload stays recoverable.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/lodestar-io/lodestar/queue"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// objectPutter is the subset of [minio.Client] the archive writes through.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archive persists messages to an S3 compatible bucket. Its [Archive.Fallback]
// plugs into a [queue.Engine] as the last resort after dead letter
// publishing is exhausted.
type Archive[T any] struct {
	log    *slog.Logger
	client objectPutter
	bucket string
	prefix string
	encode func(T) ([]byte, error)
	now    func() time.Time
}

// ArchiveOption configures optional [Archive] behaviour.
type ArchiveOption func(*archiveOptions)

type archiveOptions struct {
	prefix string
}

// WithPrefix sets the key prefix archived objects are written under.
// It defaults to "dead-letters".
func WithPrefix(prefix string) ArchiveOption {
	return func(o *archiveOptions) {
		o.prefix = prefix
	}
}

// NewArchive initializes an [Archive] which serializes messages with
// encode before writing them to bucket.
func NewArchive[T any](log *slog.Logger, client objectPutter, bucket string, encode func(T) ([]byte, error), opts ...ArchiveOption) *Archive[T] {
	o := &archiveOptions{
		prefix: "dead-letters",
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Archive[T]{
		log:    log,
		client: client,
		bucket: bucket,
		prefix: o.prefix,
		encode: encode,
		now:    time.Now,
	}
}

// Publish implements the [queue.DeadLetterPublisher] interface, making
// the bucket usable as the primary dead letter sink.
func (a *Archive[T]) Publish(ctx context.Context, msg T, cause error, attempt uint) (bool, error) {
	key, err := a.archive(ctx, msg, cause, attempt, "")
	if err != nil {
		return false, err
	}

	a.log.InfoContext(ctx, "archived dead letter", slog.String("object.key", key))
	return true, nil
}

// Fallback returns a [queue.Fallback] which archives the message. It
// reports true only once the object is durably written, allowing the
// offset to be committed.
func (a *Archive[T]) Fallback() queue.Fallback[T] {
	return func(ctx context.Context, msg T, cause error, attempt uint, recordID string) bool {
		key, err := a.archive(ctx, msg, cause, attempt, recordID)
		if err != nil {
			a.log.ErrorContext(
				ctx,
				"failed to archive message",
				queue.RecordIDAttr(recordID),
				slog.Any("error", err),
			)
			return false
		}

		a.log.WarnContext(
			ctx,
			"archived message which could not be dead lettered",
			queue.RecordIDAttr(recordID),
			slog.String("object.key", key),
		)
		return true
	}
}

// archive encodes msg and writes it under a dated object key along with
// metadata recording why it died.
func (a *Archive[T]) archive(ctx context.Context, msg T, cause error, attempt uint, recordID string) (string, error) {
	data, err := a.encode(msg)
	if err != nil {
		return "", fmt.Errorf("blob: failed to encode message for archival: %w", err)
	}

	key := a.objectKey(recordID)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"death-cause":    cause.Error(),
			"death-attempts": strconv.FormatUint(uint64(attempt), 10),
		},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// objectKey partitions the bucket by day so archived payloads can be
// listed and expired in bulk.
func (a *Archive[T]) objectKey(recordID string) string {
	if recordID == "" {
		recordID = uuid.NewString()
	}
	return path.Join(a.prefix, a.now().UTC().Format("2006/01/02"), recordID+".json")
}

