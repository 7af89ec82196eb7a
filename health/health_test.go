// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinary(t *testing.T) {
	t.Run("will report unhealthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var b Binary

			healthy, err := b.Healthy(context.Background())
			require.NoError(t, err)
			require.False(t, healthy)
		})

		t.Run("if it was marked unhealthy", func(t *testing.T) {
			var b Binary
			b.MarkHealthy()
			b.MarkUnhealthy()

			healthy, err := b.Healthy(context.Background())
			require.NoError(t, err)
			require.False(t, healthy)
		})
	})

	t.Run("will report healthy", func(t *testing.T) {
		t.Run("if it was marked healthy", func(t *testing.T) {
			var b Binary
			b.MarkHealthy()

			healthy, err := b.Healthy(context.Background())
			require.NoError(t, err)
			require.True(t, healthy)
		})
	})
}

type monitorFunc func(context.Context) (bool, error)

func (f monitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

func TestAndMonitor(t *testing.T) {
	t.Run("will report unhealthy", func(t *testing.T) {
		t.Run("if any monitor is unhealthy", func(t *testing.T) {
			var healthy Binary
			healthy.MarkHealthy()

			var unhealthy Binary

			ok, err := And(&healthy, &unhealthy).Healthy(context.Background())
			require.NoError(t, err)
			require.False(t, ok)
		})
	})

	t.Run("will fail fast", func(t *testing.T) {
		t.Run("if a monitor returns an error", func(t *testing.T) {
			monErr := errors.New("monitor failed")
			failing := monitorFunc(func(ctx context.Context) (bool, error) {
				return false, monErr
			})
			never := monitorFunc(func(ctx context.Context) (bool, error) {
				t.Error("monitor should not be checked")
				return true, nil
			})

			ok, err := And(failing, never).Healthy(context.Background())
			require.ErrorIs(t, err, monErr)
			require.False(t, ok)
		})
	})

	t.Run("will report healthy", func(t *testing.T) {
		t.Run("if all monitors are healthy", func(t *testing.T) {
			var a, b Binary
			a.MarkHealthy()
			b.MarkHealthy()

			ok, err := And(&a, &b).Healthy(context.Background())
			require.NoError(t, err)
			require.True(t, ok)
		})
	})
}
