// Package asyncx provides the small set of concurrency helpers the service
// layers lean on: fire-and-forget background work decoupled from request
// completion, and bounded retries with first-class context support.
package asyncx

import (
	"context"
	"time"
)

// Do fires fn in a goroutine and forgets it (fire-and-forget). The caller's
// request completes regardless of fn's outcome; fn owns its own error
// handling.
func Do(fn func()) {
	go fn()
}

// DoCtx fires fn in a goroutine only if ctx is not already done. fn receives
// ctx so it can observe cancellation while it runs.
func DoCtx(ctx context.Context, fn func(context.Context)) {
	go func() {
		select {
		case <-ctx.Done():
			return
		default:
			fn(ctx)
		}
	}()
}

// Detach fires fn in a goroutine with a fresh context carrying the given
// timeout. Used when background work must outlive the originating request
// whose context is about to be cancelled.
func Detach(timeout time.Duration, fn func(context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Retry calls fn up to attempts times, returning on first success. Respects
// context cancellation between attempts.
func Retry[T any](ctx context.Context, attempts int, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
		val  T
	)
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		val, err = fn(ctx)
		if err == nil {
			return val, nil
		}
	}
	return zero, err
}
