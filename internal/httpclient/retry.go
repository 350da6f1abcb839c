package httpclient

import (
	"context"
	"time"
)

// retryer runs fn up to maxRetries+1 times with exponential backoff between
// attempts. fn reports whether its outcome is worth retrying.
type retryer struct {
	maxRetries uint
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r *retryer) do(ctx context.Context, fn func(attempt uint) (shouldRetry bool, err error)) error {
	var lastErr error

	for attempt := range r.maxRetries + 1 {
		if err := ctx.Err(); err != nil {
			return err
		}

		shouldRetry, err := fn(attempt)
		if !shouldRetry {
			return err
		}
		lastErr = err

		if attempt < r.maxRetries {
			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (r *retryer) backoff(attempt uint) time.Duration {
	delay := r.baseDelay * (1 << attempt)
	return min(delay, r.maxDelay)
}
