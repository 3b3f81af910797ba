// Package retryutil retries flaky outbound calls, chiefly Telegram sends
// that hit transient network errors or flood limits.
package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultRetryDelay = 2 * time.Second
	defaultAttempts   = 3
)

// Do runs fn up to attempts times, waiting delay between tries. It stops on
// the first success or when ctx is done, and returns the last error.
func Do(ctx context.Context, logger *slog.Logger, name string, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 && logger != nil {
				logger.Info(name+"_retry_ok", "attempt", attempt)
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if logger != nil {
			logger.Warn(name+"_retry_scheduled", "attempt", attempt, "delay", delay.String(), "error", lastErr.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if logger != nil {
		logger.Warn(name+"_retry_exhausted", "attempts", attempts, "error", lastErr.Error())
	}
	return lastErr
}
