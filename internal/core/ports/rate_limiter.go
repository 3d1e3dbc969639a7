package ports

import (
	"context"
	"time"
)

// RateLimitRepository provides low-level atomic operations for rate limiting counters.
// It abstracts storage (e.g., Redis). Implementation should be concurrency-safe.
type RateLimitRepository interface {
	// IncrementWindow atomically increments the counter for subject in the current window
	// and ensures the key expires after ttl. Returns the updated count and the window start time.
	IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimiterService throttles outbound calls per external provider.
// Implementations MUST be safe for concurrent use.
type RateLimiterService interface {
	// Allow consumes one call unit for provider and reports whether it is permitted.
	Allow(ctx context.Context, provider string) (allowed bool, remaining int, reset time.Time, err error)
}
