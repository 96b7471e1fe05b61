// Package ratelimit provides per-connector token-bucket admission control.
// Each connector owns exactly one Limiter; state is never shared across
// connectors, so one network's quota cannot starve another's.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket refilled continuously: acquire latency is
// proportional to the token deficit, not to a polling interval.
type Limiter struct {
	bucket   *rate.Limiter
	capacity int
}

// New creates a limiter admitting at most requests per window, with burst
// capacity equal to the full quota. A non-positive quota or window is a
// configuration mistake and is rejected here rather than dividing by zero
// at runtime.
func New(requests int, window time.Duration) (*Limiter, error) {
	if requests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", requests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %v", window)
	}

	refill := rate.Limit(float64(requests) / window.Seconds())
	return &Limiter{
		bucket:   rate.NewLimiter(refill, requests),
		capacity: requests,
	}, nil
}

// Acquire blocks until a token is available, then consumes it. The only
// error it can return is the context's, when the caller gives up waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// Penalize burns up to n tokens without waiting, pushing subsequent
// acquisitions further out. Used as a backoff hint when the upstream
// answers 429 despite local admission control.
func (l *Limiter) Penalize(n int) {
	for i := 0; i < n; i++ {
		if !l.bucket.Allow() {
			return
		}
	}
}

// Info reports the currently available tokens and the bucket capacity
// without consuming anything. Used for health reporting.
func (l *Limiter) Info() (remaining float64, capacity int) {
	tokens := l.bucket.Tokens()
	if tokens < 0 {
		tokens = 0
	}
	if tokens > float64(l.capacity) {
		tokens = float64(l.capacity)
	}
	return tokens, l.capacity
}
