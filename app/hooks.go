// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
)

// HookFunc releases a resource after the runtime it served has returned.
type HookFunc func(context.Context) error

// HookRegistry collects cleanup work while a runtime is being built.
// Registering the hook right next to the resource it releases keeps the
// open and the close in one place:
//
//	pool, err := pgxpool.New(ctx, dsn)
//	if err != nil {
//		return nil, err
//	}
//	hooks.OnPostRun(func(context.Context) error {
//		pool.Close()
//		return nil
//	})
type HookRegistry struct {
	hooks []HookFunc
}

// OnPostRun schedules hook to run once the runtime has returned. Hooks
// run in registration order, and every hook runs even when the runtime
// or an earlier hook failed.
func (r *HookRegistry) OnPostRun(hook HookFunc) {
	r.hooks = append(r.hooks, hook)
}

// hookRuntime runs an inner runtime followed by its registered hooks.
type hookRuntime struct {
	inner Runtime
	hooks []HookFunc
}

// Run implements the [Runtime] interface. The inner runtime's error and
// every hook error are joined, so a failed drain never masks a failed
// cleanup or vice versa.
func (rt hookRuntime) Run(ctx context.Context) error {
	errs := []error{rt.inner.Run(ctx)}
	for _, hook := range rt.hooks {
		errs = append(errs, hook(ctx))
	}
	return errors.Join(errs...)
}

// WithHooks hands f a [HookRegistry] alongside the build context so
// resources opened while constructing the runtime can schedule their own
// release. The registered hooks run after the built runtime returns.
func WithHooks[T Runtime](f func(context.Context, *HookRegistry) (T, error)) Builder[hookRuntime] {
	return BuilderFunc[hookRuntime](func(ctx context.Context) (hookRuntime, error) {
		registry := new(HookRegistry)

		inner, err := f(ctx, registry)
		if err != nil {
			return hookRuntime{}, err
		}

		return hookRuntime{
			inner: inner,
			hooks: registry.hooks,
		}, nil
	})
}
