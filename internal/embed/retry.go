package embed

import (
	"context"
	"errors"
	"time"

	ckerrors "github.com/semcs/ck/internal/errors"
)

const (
	maxAttempts  = 3
	baseBackoff  = 500 * time.Millisecond
	backoffScale = 2
)

// withRetry runs fn up to maxAttempts times, backing off exponentially.
// Only errors marked retryable are retried.
func withRetry(ctx context.Context, fn func() error) error {
	backoff := baseBackoff

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var ce *ckerrors.Error
		if !errors.As(err, &ce) || !ce.Retryable || attempt == maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= backoffScale
	}
	return err
}
