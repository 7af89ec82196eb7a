// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lodestar provides the base config and runner for lodestar consumers.
package lodestar

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lodestar-io/lodestar/internal"

	"github.com/z5labs/bedrock"
	"github.com/z5labs/bedrock/appbuilder"
	bedrockcfg "github.com/z5labs/bedrock/config"
	"github.com/z5labs/bedrock/lifecycle"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which is backed by the globally
// registered OTel [go.opentelemetry.io/otel/log.LoggerProvider].
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// RunOptions are configurable parameters of [Run].
type RunOptions struct {
	logger *slog.Logger
}

// RunOption sets a value on [RunOptions].
type RunOption interface {
	ApplyRunOption(*RunOptions)
}

type runOptionFunc func(*RunOptions)

func (f runOptionFunc) ApplyRunOption(ro *RunOptions) {
	f(ro)
}

// LogHandler configures the [slog.Handler] used to report errors
// encountered while building or running the application. By default,
// errors are logged as JSON to stdout.
func LogHandler(h slog.Handler) RunOption {
	return runOptionFunc(func(ro *RunOptions) {
		ro.logger = slog.New(h)
	})
}

// Run reads config from r (layered over [DefaultConfig]) and unmarshals
// it into T. The OTel SDK is initialized from the config before builder
// is invoked, and panics while building or running are recovered. Any
// error encountered along the way is logged and returned.
func Run[T appbuilder.OTelInitializer](ctx context.Context, r io.Reader, builder bedrock.AppBuilder[T], opts ...RunOption) error {
	ro := &RunOptions{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})),
	}
	for _, opt := range opts {
		opt.ApplyRunOption(ro)
	}

	cfg := bedrockcfg.MultiSource(
		DefaultConfig(),
		ConfigSource(r),
	)

	b := appbuilder.FromConfig(
		appbuilder.LifecycleContext(
			appbuilder.OTel(
				appbuilder.Recover(builder),
			),
			&lifecycle.Context{},
		),
	)

	err := internal.Run(ctx, cfg, b)
	if err != nil {
		ro.logger.Error("failed to run", slog.Any("error", err))
	}
	return err
}
