package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff calls fn up to maxAttempts times. The wait before attempt
// n (1-based, n > 1) is base*(n-1)^2. Cancellation of ctx stops retrying.
func RetryWithBackoff(ctx context.Context, maxAttempts int, base time.Duration, fn func(attempt int) error, logger *Logger) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := base * time.Duration((attempt-1)*(attempt-1))
			logger.Warn("Retrying (attempt %d/%d) after %v...", attempt, maxAttempts, backoff)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
		if err := fn(attempt); err != nil {
			lastErr = err
			logger.Warn("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}
		return nil
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", maxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
