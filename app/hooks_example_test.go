// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app_test

import (
	"context"
	"fmt"

	"github.com/lodestar-io/lodestar/app"
)

// deadLetterStore stands in for a store backed by a connection pool.
type deadLetterStore struct{}

func (deadLetterStore) Close() error {
	fmt.Println("closing dead letter store")
	return nil
}

func ExampleWithHooks() {
	builder := app.WithHooks(func(ctx context.Context, hooks *app.HookRegistry) (app.Runtime, error) {
		store := deadLetterStore{}
		hooks.OnPostRun(func(context.Context) error {
			return store.Close()
		})

		return app.RuntimeFunc(func(context.Context) error {
			fmt.Println("consuming")
			return nil
		}), nil
	})

	_ = app.Run(context.Background(), builder)

	// Output:
	// consuming
	// closing dead letter store
}
