/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrPending is returned by Result before the future resolves.
var ErrPending = errors.New("dispatch: future not resolved")

// Future holds the outcome of one unit of work. It resolves exactly once,
// with either a value or an error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once

	mu        sync.Mutex
	val       T
	err       error
	callbacks []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, nil)
	return f
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// resolve completes the future and runs pending callbacks on the calling
// goroutine. Only the first call has an effect.
func (f *Future[T]) resolve(v T, err error) bool {
	first := false
	f.once.Do(func() {
		first = true
		if err != nil {
			var zero T
			v = zero
		}
		f.mu.Lock()
		f.val, f.err = v, err
		cbs := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		for _, cb := range cbs {
			invoke(cb, v, err)
		}
	})
	return first
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves or ctx ends. A ctx error does not
// stop the work itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrPending.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
		var zero T
		return zero, ErrPending
	}
}

// OnComplete registers cb to run once with the outcome. If the future has
// already resolved, cb runs immediately on the calling goroutine; otherwise it
// runs on the goroutine that resolves the future. A panic in cb is recovered
// and logged, and the other callbacks still run.
func (f *Future[T]) OnComplete(cb func(T, error)) *Future[T] {
	if cb == nil {
		return f
	}
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		invoke(cb, f.val, f.err)
	default:
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
	}
	return f
}

// invoke runs one callback, recovering and logging a panic.
func invoke[T any](cb func(T, error), v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("recovered panic in future callback", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	cb(v, err)
}
