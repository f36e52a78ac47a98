// internal/runutil/runutil.go
package runutil

import (
	"context"
	"time"
)

// Backoff is the delay before retry attempt n (0-based): base doubled per
// attempt, capped at ceiling when ceiling > 0.
func Backoff(base, ceiling time.Duration, n int) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if ceiling > 0 && d >= ceiling {
			return ceiling
		}
	}
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}

// Retry calls fn until it succeeds, returns an error retryable rejects, or
// retries extra attempts have been made. It sleeps Backoff(base, ceiling, n)
// between attempts and gives up early with ctx.Err() when ctx ends. The
// last error is returned.
func Retry(ctx context.Context, retries int, base, ceiling time.Duration, retryable func(error) bool, fn func(attempt int) error) error {
	for n := 0; ; n++ {
		err := fn(n)
		if err == nil || n >= retries || !retryable(err) {
			return err
		}
		t := time.NewTimer(Backoff(base, ceiling, n))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
