package redisstore

import (
	"context"
	"errors"
	"time"
)

const retryBase = 50 * time.Millisecond

// retry runs fn up to attempts times with doubling backoff. Context errors
// returned by fn end the loop at once.
func retry(ctx context.Context, attempts int, fn func() error) error {
	var err error

	for i := range attempts {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBase << i):
		}
	}

	return err
}
