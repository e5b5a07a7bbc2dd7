// Package retry provides a bounded retry combinator with deterministic
// quadratic backoff. Provider adapters use it instead of ad hoc loops so
// failure paths stay visible at the call site.
package retry

import (
	"context"
	"errors"
	"time"
)

// Do invokes fn up to attempts times, sleeping attempt²·baseDelay between
// tries. It returns nil on the first success, the context error if the
// context is cancelled, or the last error once attempts are exhausted.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New("retry: invalid attempt count")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
