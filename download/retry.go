package download

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy bounds retries for one download. An operation runs at most
// MaxRetries+1 times; the delay doubles after every failed attempt.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is the backoff before the first retry.
	Delay time.Duration

	// Retryable decides whether an error is worth another attempt. Context
	// cancellation is never retried regardless of this predicate.
	Retryable func(error) bool
}

// Do runs op until it succeeds, the predicate gives up, or the attempt budget
// is exhausted. The last error is returned unwrapped so callers can classify
// it.
func (p Policy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	delay := p.Delay

	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("download succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries+1 {
			break
		}

		slog.Debug("retrying download", "attempt", attempt, "delay", delay, "error", lastErr)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
