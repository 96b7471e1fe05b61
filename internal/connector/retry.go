package connector

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds the retry loop around a transport call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the layer-wide defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
}

// Retry runs op up to policy.MaxAttempts times, sleeping
// BaseDelay * 2^(attempt-1) between attempts. A non-retryable
// classification aborts immediately without waiting. The last error is
// returned once attempts are exhausted; the caller owns the fallback.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, op func(ctx context.Context) (any, error)) (any, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		classified := Classify(err)
		if !classified.Retryable {
			logger.Debug("aborting retries on non-retryable error",
				"attempt", attempt,
				"kind", string(classified.Kind),
				"error", err.Error())
			return nil, classified
		}
		if attempt == attempts {
			break
		}

		wait := policy.BaseDelay << (attempt - 1)
		logger.Debug("retrying after transient error",
			"attempt", attempt,
			"wait", wait,
			"kind", string(classified.Kind),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return nil, Classify(ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, Classify(lastErr)
}
