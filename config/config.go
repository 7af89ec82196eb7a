// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides small, composable readers for component configuration.
package config

import (
	"context"
	"fmt"
	"os"
)

// Value represents an optionally set config value.
// The zero value is "unset".
type Value[T any] struct {
	value T
	set   bool
}

// ValueOf returns a set [Value] wrapping t.
func ValueOf[T any](t T) Value[T] {
	return Value[T]{value: t, set: true}
}

// Get returns the underlying value and whether it was set.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.set
}

// Reader reads a single config value from some source.
//
// Returning an unset [Value] with a nil error signals the source has
// no opinion, allowing callers to fall back to defaults.
type Reader[T any] interface {
	Read(context.Context) (Value[T], error)
}

// ReaderFunc is an adapter to allow the use of ordinary functions as [Reader]s.
type ReaderFunc[T any] func(context.Context) (Value[T], error)

// Read implements the [Reader] interface.
func (f ReaderFunc[T]) Read(ctx context.Context) (Value[T], error) {
	return f(ctx)
}

// Env returns a [Reader] backed by the named environment variable.
// An unset variable reads as an unset [Value], not an error.
func Env(key string) Reader[string] {
	return ReaderFunc[string](func(ctx context.Context) (Value[string], error) {
		s, ok := os.LookupEnv(key)
		if !ok {
			return Value[string]{}, nil
		}
		return ValueOf(s), nil
	})
}

// Map transforms the value read by r with f. Unset values pass through unchanged.
func Map[A, B any](r Reader[A], f func(context.Context, A) (B, error)) Reader[B] {
	return ReaderFunc[B](func(ctx context.Context) (Value[B], error) {
		va, err := r.Read(ctx)
		if err != nil {
			return Value[B]{}, err
		}

		a, ok := va.Get()
		if !ok {
			return Value[B]{}, nil
		}

		b, err := f(ctx, a)
		if err != nil {
			return Value[B]{}, err
		}
		return ValueOf(b), nil
	})
}

// Default wraps r so an unset value reads as def instead.
func Default[T any](def T, r Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		if r == nil {
			return ValueOf(def), nil
		}

		v, err := r.Read(ctx)
		if err != nil {
			return Value[T]{}, err
		}
		if _, ok := v.Get(); !ok {
			return ValueOf(def), nil
		}
		return v, nil
	})
}

// Read reads a value from r, returning the zero value if r is nil or unset.
func Read[T any](ctx context.Context, r Reader[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, nil
	}

	v, err := r.Read(ctx)
	if err != nil {
		return zero, err
	}

	t, _ := v.Get()
	return t, nil
}

// MustSetError signals that a required config value was never set.
type MustSetError struct{}

// Error implements the error interface.
func (MustSetError) Error() string {
	return "config: required value was not set"
}

// Must reads a required value from r, panicking if it errors or was never set.
func Must[T any](ctx context.Context, r Reader[T]) T {
	if r == nil {
		panic(MustSetError{})
	}

	v, err := r.Read(ctx)
	if err != nil {
		panic(fmt.Errorf("config: failed to read required value: %w", err))
	}

	t, ok := v.Get()
	if !ok {
		panic(MustSetError{})
	}
	return t
}

// MustOr reads a value from r, falling back to def if r is nil or the
// value was never set. It panics if r errors.
func MustOr[T any](ctx context.Context, def T, r Reader[T]) T {
	if r == nil {
		return def
	}

	v, err := r.Read(ctx)
	if err != nil {
		panic(fmt.Errorf("config: failed to read value: %w", err))
	}

	t, ok := v.Get()
	if !ok {
		return def
	}
	return t
}
