// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithHooks(t *testing.T) {
	t.Run("will run hooks in registration order after the runtime returns", func(t *testing.T) {
		var order []string
		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(context.Context) error {
				order = append(order, "first")
				return nil
			})
			hooks.OnPostRun(func(context.Context) error {
				order = append(order, "second")
				return nil
			})
			return RuntimeFunc(func(context.Context) error {
				order = append(order, "runtime")
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		require.NoError(t, rt.Run(context.Background()))
		require.Equal(t, []string{"runtime", "first", "second"}, order)
	})

	t.Run("will run every hook even when the runtime fails", func(t *testing.T) {
		cause := errors.New("drain timed out")
		hookRan := false

		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(context.Context) error {
				hookRan = true
				return nil
			})
			return RuntimeFunc(func(context.Context) error {
				return cause
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		err = rt.Run(context.Background())
		require.ErrorIs(t, err, cause)
		require.True(t, hookRan)
	})

	t.Run("will run remaining hooks when an earlier one fails", func(t *testing.T) {
		var ran []string
		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(context.Context) error {
				ran = append(ran, "first")
				return errors.New("connection already closed")
			})
			hooks.OnPostRun(func(context.Context) error {
				ran = append(ran, "second")
				return nil
			})
			return RuntimeFunc(func(context.Context) error { return nil }), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		require.Error(t, rt.Run(context.Background()))
		require.Equal(t, []string{"first", "second"}, ran)
	})

	t.Run("will join the runtime error with every hook error", func(t *testing.T) {
		runErr := errors.New("drain timed out")
		hookErr := errors.New("connection already closed")

		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(context.Context) error { return hookErr })
			hooks.OnPostRun(func(context.Context) error { return nil })
			return RuntimeFunc(func(context.Context) error { return runErr }), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		err = rt.Run(context.Background())
		require.ErrorIs(t, err, runErr)
		require.ErrorIs(t, err, hookErr)
	})

	t.Run("if the build fails then no runtime is returned", func(t *testing.T) {
		cause := errors.New("failed to open pool")
		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(context.Context) error {
				t.Error("hook should never be registered on a failed build")
				return nil
			})
			return nil, cause
		})

		_, err := builder.Build(context.Background())
		require.ErrorIs(t, err, cause)
	})

	t.Run("will pass the run context to hooks", func(t *testing.T) {
		type ctxKey struct{}

		var observed any
		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			hooks.OnPostRun(func(ctx context.Context) error {
				observed = ctx.Value(ctxKey{})
				return nil
			})
			return RuntimeFunc(func(context.Context) error { return nil }), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		ctx := context.WithValue(context.Background(), ctxKey{}, "orders")
		require.NoError(t, rt.Run(ctx))
		require.Equal(t, "orders", observed)
	})

	t.Run("will run the runtime untouched when no hooks are registered", func(t *testing.T) {
		ran := false
		builder := WithHooks(func(ctx context.Context, hooks *HookRegistry) (Runtime, error) {
			return RuntimeFunc(func(context.Context) error {
				ran = true
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		require.NoError(t, rt.Run(context.Background()))
		require.True(t, ran)
	})
}
