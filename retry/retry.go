// Package retry provides generic retry with exponential backoff for
// transient upstream failures (FX quotes, account lookups). It respects
// context cancellation between attempts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how many attempts are made and how long to wait between
// them.
type Policy struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // backoff growth factor
}

// DefaultPolicy suits short interactive lookups.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// Retryable decides whether an error is worth another attempt.
type Retryable func(error) bool

// Always treats every error as transient.
func Always(error) bool { return true }

// Do runs fn until it succeeds, the error is not retryable, the attempts are
// exhausted or the context ends.
func Do[T any](ctx context.Context, policy Policy, retryable Retryable, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	delay := policy.InitialDelay
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", policy.MaxAttempts, lastErr)
}
