// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kafka

import (
	"context"
	"io"
	"os"
	"syscall"

	"github.com/lodestar-io/lodestar"
	"github.com/lodestar-io/lodestar/app"

	"github.com/z5labs/bedrock"
	bedrockapp "github.com/z5labs/bedrock/app"
	"github.com/z5labs/bedrock/appbuilder"
)

// Run reads, parses, and unmarshals your custom config into the type T
// before calling f to initialize the consumer [Runtime]. The runtime is
// then run until an OS signal asks it to drain and stop. Panics while
// building or consuming are recovered, and the OTel SDK is initialized
// from the config before f is invoked.
//
// Resources opened while building the runtime, such as the pool behind a
// [github.com/lodestar-io/lodestar/queue/postgres.DeadLetterStore], can
// register their release on the [app.HookRegistry]; hooks run after the
// consumer has drained.
func Run[T appbuilder.OTelInitializer](r io.Reader, f func(context.Context, T, *app.HookRegistry) (*Runtime, error), opts ...lodestar.RunOption) {
	builder := appBuilder[T](func(ctx context.Context, cfg T, hooks *app.HookRegistry) (app.Runtime, error) {
		return f(ctx, cfg, hooks)
	})

	// lodestar.Run logs any build or run error before returning it.
	_ = lodestar.Run(context.Background(), r, builder, opts...)
}

// appBuilder wires post run hooks, panic recovery, and OS signal
// handling around the consumer runtime f builds.
func appBuilder[T any](f func(context.Context, T, *app.HookRegistry) (app.Runtime, error)) bedrock.AppBuilder[T] {
	return bedrock.AppBuilderFunc[T](func(ctx context.Context, cfg T) (bedrock.App, error) {
		rt, err := app.WithHooks(func(ctx context.Context, hooks *app.HookRegistry) (app.Runtime, error) {
			return f(ctx, cfg, hooks)
		}).Build(ctx)
		if err != nil {
			return nil, err
		}

		var base bedrock.App = rt
		base = bedrockapp.Recover(base)
		base = bedrockapp.InterruptOn(base, os.Kill, os.Interrupt, syscall.SIGTERM)
		return base, nil
	})
}
