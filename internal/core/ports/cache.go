package ports

import (
	"context"
	"time"

	"github.com/updateme/engine/internal/core/domain/cache"
)

// Cache defines a minimal key-value cache contract.
// Implementations should degrade gracefully (returning an error without crashing callers)
// so that application logic can fall back to the primary datastore.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if not found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key with TTL (0 or negative means no expiration if supported).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
}

// CacheRepository is the document store behind the generation cache.
type CacheRepository interface {
	// FindByKey returns nil, nil when no entry exists.
	FindByKey(ctx context.Context, key string) (*cache.Entry, error)
	DeleteByKey(ctx context.Context, key string) error
	Insert(ctx context.Context, e *cache.Entry) error
	// Replace deletes every entry with e.CacheKey and inserts e as one unit.
	Replace(ctx context.Context, e *cache.Entry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	FindByProviderAndDate(ctx context.Context, providerType, date string) ([]*cache.Entry, error)
	Count(ctx context.Context) (int64, error)
}

// CacheStore is the day-bucketed generation cache used by providers.
// Lookups never fail: storage errors are reported as misses.
type CacheStore interface {
	GenerateKey(query, providerType string, extra map[string]any) string
	Get(ctx context.Context, key string) (cache.Payload, bool)
	GetAllByProviderToday(ctx context.Context, providerType string) []*cache.Entry
	// Save replaces any entry under key. Failures are logged and swallowed.
	Save(ctx context.Context, key string, payload cache.Payload, providerType, query string, ttlDays int)
	ClearExpired(ctx context.Context, daysToKeep int) (int64, error)
	GetByProviderAndDate(ctx context.Context, providerType string, date time.Time) ([]*cache.Entry, error)
	Stats(ctx context.Context) (*cache.Stats, error)
	// Today returns the current day bucket.
	Today() time.Time
}
