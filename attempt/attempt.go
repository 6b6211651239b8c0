// Package attempt provides a small at-most-N-attempts combinator with a
// fixed backoff between tries. It exists so retry-once-then-give-up logic
// lives in one place instead of being rewritten at every channel call
// site.
package attempt

import (
	"context"
	"log/slog"
	"time"
)

// Policy controls how Do retries.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	Attempts int
	// Backoff is the fixed wait between tries.
	Backoff time.Duration
	// Retryable decides whether an error is worth another try. Nil means
	// every error is retryable.
	Retryable func(error) bool
	// Logger logs each retry. Nil means silent retries.
	Logger *slog.Logger
}

// Do runs fn up to p.Attempts times, waiting p.Backoff between tries.
// It returns nil on the first success and the last error otherwise.
// Context cancellation stops the loop between tries; whatever fn is doing
// when the context fires is fn's own business.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "attempt failed, retrying",
				"attempt", i+1,
				"attempts", attempts,
				"backoff_ms", p.Backoff.Milliseconds(),
				"error", lastErr)
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(p.Backoff):
		}
	}
	return lastErr
}

// Value is Do for functions that produce a result. On failure it returns
// the zero value of T alongside the last error.
func Value[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
