package ai

import (
	"context"
	"fmt"
	"time"

	"botgpt/internal/pkg/logger"
)

// RetryPolicy bounds attempts against an external service. Backoff maps the
// zero-based attempt index to the delay before the next attempt. Tests
// substitute a zero-delay policy.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy is 3 attempts with exponential 2^n second backoff.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// ZeroDelayPolicy retries immediately. Test use only.
func ZeroDelayPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     func(int) time.Duration { return 0 },
	}
}

// Retry runs fn up to policy.MaxAttempts times, sleeping cooperatively
// between attempts on transient failures. Fatal failures and exhausted
// retries both escalate to ErrServiceUnavailable. The backoff sleep respects
// ctx cancellation; there is no finer cancellation granularity than
// "abandon after the current attempt returns".
func Retry(ctx context.Context, policy RetryPolicy, log *logger.Logger, op string, fn func(context.Context) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			log.Error("external call failed", "op", op, "attempt", attempt+1, "error", err)
			return fmt.Errorf("%s failed: %v: %w", op, err, ErrServiceUnavailable)
		}
		if attempt == maxAttempts-1 {
			log.Error("external call failed, retries exhausted", "op", op, "attempts", maxAttempts, "error", err)
			return fmt.Errorf("%s failed after %d attempts: %v: %w", op, maxAttempts, err, ErrServiceUnavailable)
		}

		delay := policy.Backoff(attempt)
		log.Warn("transient external failure, backing off",
			"op", op, "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s failed: %w", op, ErrServiceUnavailable)
}
