// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type mockExecer struct {
	calls []execCall
	err   error
}

func (e *mockExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.calls = append(e.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, e.err
}

func jsonEncode(msg string) ([]byte, error) {
	return []byte(`"` + msg + `"`), nil
}

func TestDeadLetterStore_Publish(t *testing.T) {
	t.Run("will insert the encoded message with its failure details", func(t *testing.T) {
		db := &mockExecer{}
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), db, jsonEncode)

		published, err := store.Publish(context.Background(), "hello", errors.New("downstream is on fire"), 3)
		require.NoError(t, err)
		require.True(t, published)

		require.Len(t, db.calls, 1)
		call := db.calls[0]
		require.Contains(t, call.sql, "INSERT INTO dead_letters")
		require.Len(t, call.args, 5)

		id, ok := call.args[0].(uuid.UUID)
		require.True(t, ok)
		require.NotEqual(t, uuid.Nil, id)

		require.Equal(t, []byte(`"hello"`), call.args[1])
		require.Equal(t, "downstream is on fire", call.args[2])
		require.Equal(t, int32(3), call.args[3])
	})

	t.Run("will insert into the configured table", func(t *testing.T) {
		db := &mockExecer{}
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), db, jsonEncode, WithTable("failed_orders"))

		_, err := store.Publish(context.Background(), "hello", errors.New("boom"), 0)
		require.NoError(t, err)
		require.Contains(t, db.calls[0].sql, "INSERT INTO failed_orders")
	})

	t.Run("if encoding fails then nothing is inserted", func(t *testing.T) {
		db := &mockExecer{}
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), db, func(msg string) ([]byte, error) {
			return nil, errors.New("not serializable")
		})

		published, err := store.Publish(context.Background(), "hello", errors.New("boom"), 0)
		require.Error(t, err)
		require.False(t, published)
		require.Empty(t, db.calls)
	})

	t.Run("if the insert fails then the failure is reported", func(t *testing.T) {
		cause := errors.New("connection refused")
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), &mockExecer{err: cause}, jsonEncode)

		published, err := store.Publish(context.Background(), "hello", errors.New("boom"), 0)
		require.ErrorIs(t, err, cause)
		require.False(t, published)
	})
}

func TestDeadLetterStore_Setup(t *testing.T) {
	t.Run("will create the table if it does not exist", func(t *testing.T) {
		db := &mockExecer{}
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), db, jsonEncode)

		require.NoError(t, store.Setup(context.Background()))
		require.Len(t, db.calls, 1)
		require.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS dead_letters")
	})

	t.Run("if table creation fails then the error is reported", func(t *testing.T) {
		cause := errors.New("permission denied")
		store := NewDeadLetterStore(slog.New(slog.DiscardHandler), &mockExecer{err: cause}, jsonEncode)

		require.ErrorIs(t, store.Setup(context.Background()), cause)
	})
}
