// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package postgres provides a Postgres backed dead letter sink.
//
// It is an alternative to republishing failed messages to a Kafka topic:
// dead letters land in a table where they can be inspected, queried, and
// replayed with plain SQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTable is the table dead letters are inserted into unless
// [WithTable] overrides it.
const DefaultTable = "dead_letters"

// execer is the subset of [pgx.Conn] and [pgxpool.Pool] the store writes
// through.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DeadLetterStore implements [queue.DeadLetterPublisher] by inserting
// failed messages into a Postgres table.
type DeadLetterStore[T any] struct {
	log    *slog.Logger
	db     execer
	table  string
	encode func(T) ([]byte, error)
}

// StoreOption configures optional [DeadLetterStore] behaviour.
type StoreOption func(*storeOptions)

type storeOptions struct {
	table string
}

// WithTable overrides the table dead letters are inserted into.
func WithTable(table string) StoreOption {
	return func(o *storeOptions) {
		o.table = table
	}
}

// NewDeadLetterStore initializes a [DeadLetterStore] which serializes
// messages with encode before inserting them.
func NewDeadLetterStore[T any](log *slog.Logger, db execer, encode func(T) ([]byte, error), opts ...StoreOption) *DeadLetterStore[T] {
	o := &storeOptions{
		table: DefaultTable,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &DeadLetterStore[T]{
		log:    log,
		db:     db,
		table:  o.table,
		encode: encode,
	}
}

// Setup creates the dead letter table if it does not exist yet.
func (s *DeadLetterStore[T]) Setup(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		payload BYTEA NOT NULL,
		cause TEXT NOT NULL,
		attempts INT NOT NULL,
		died_at TIMESTAMPTZ NOT NULL
	)`, s.table)

	_, err := s.db.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("postgres: failed to create dead letter table %s: %w", s.table, err)
	}
	return nil
}

// Publish implements the [queue.DeadLetterPublisher] interface.
func (s *DeadLetterStore[T]) Publish(ctx context.Context, msg T, cause error, attempt uint) (bool, error) {
	payload, err := s.encode(msg)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to encode dead letter: %w", err)
	}

	id := uuid.New()
	insert := fmt.Sprintf(
		"INSERT INTO %s (id, payload, cause, attempts, died_at) VALUES ($1, $2, $3, $4, $5)",
		s.table,
	)

	_, err = s.db.Exec(ctx, insert, id, payload, cause.Error(), int32(attempt), time.Now().UTC())
	if err != nil {
		return false, err
	}

	s.log.InfoContext(
		ctx,
		"stored dead letter",
		slog.String("death.event.id", id.String()),
		slog.String("table", s.table),
	)
	return true, nil
}
