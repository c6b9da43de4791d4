// Package retry provides a reusable bounded-retry policy for external calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted wraps the last error after the retry bound is hit.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy describes how an external call is retried.
type Policy struct {
	// MaxAttempts bounds the total number of attempts (including the first).
	MaxAttempts int
	// Backoff returns the delay before the given attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether an error is worth retrying. A nil predicate
	// retries every error.
	Retryable func(err error) bool
}

// LinearBackoff returns a backoff proportional to the attempt count.
func LinearBackoff(unit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * unit
	}
}

// ExponentialBackoff doubles the delay per attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}

// Do runs fn under the policy. It returns nil on the first success, the
// original error for non-retryable failures, and ErrAttemptsExhausted
// (wrapping the last error) once the bound is hit. The context cancels
// both the call and any pending backoff sleep.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if p.Backoff != nil {
			timer := time.NewTimer(p.Backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempts, lastErr)
}
