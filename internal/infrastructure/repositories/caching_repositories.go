package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
)

// Utility helpers
func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// loadWithSingleflight coalesces concurrent misses for sfKey into one loader call.
func loadWithSingleflight[T any](sfKey string, loader func() (*T, error)) (*T, error) {
	res, err, _ := sf.Do(sfKey, func() (any, error) {
		return loader()
	})
	if err != nil {
		return nil, err
	}
	v, ok := res.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}
	return v, nil
}

// CachingCacheRepository keeps hot entries in redis in front of the SQL store.
// A copy expires when its day bucket ends, so a stale day is never served.
type CachingCacheRepository struct {
	inner ports.CacheRepository
	cache ports.Cache
	loc   *time.Location
	now   func() time.Time
}

func NewCachingCacheRepository(inner ports.CacheRepository, c ports.Cache, loc *time.Location) *CachingCacheRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &CachingCacheRepository{inner: inner, cache: c, loc: loc, now: time.Now}
}

func cacheEntryKey(key string) string { return "cache:entry:" + key }

// ttlFor returns the time left in the entry's day bucket.
func (c *CachingCacheRepository) ttlFor(e *cache.Entry) time.Duration {
	day, err := time.ParseInLocation(cache.DateLayout, e.CreatedDate, c.loc)
	if err != nil {
		return 0
	}
	return day.AddDate(0, 0, 1).Sub(c.now())
}

func (c *CachingCacheRepository) remember(ctx context.Context, e *cache.Entry) {
	if ttl := c.ttlFor(e); ttl > 0 {
		cacheSetSilently(c.cache, ctx, cacheEntryKey(e.CacheKey), e, ttl)
	}
}

func (c *CachingCacheRepository) FindByKey(ctx context.Context, key string) (*cache.Entry, error) {
	if v, ok := cacheGet[cache.Entry](c.cache, ctx, cacheEntryKey(key)); ok {
		return v, nil
	}
	return loadWithSingleflight("cache:entry:"+key, func() (*cache.Entry, error) {
		e, err := c.inner.FindByKey(ctx, key)
		if err != nil || e == nil {
			return e, err
		}
		c.remember(ctx, e)
		return e, nil
	})
}

func (c *CachingCacheRepository) DeleteByKey(ctx context.Context, key string) error {
	if err := c.inner.DeleteByKey(ctx, key); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, cacheEntryKey(key))
	}
	return nil
}

func (c *CachingCacheRepository) Insert(ctx context.Context, e *cache.Entry) error {
	if err := c.inner.Insert(ctx, e); err != nil {
		return err
	}
	c.remember(ctx, e)
	return nil
}

func (c *CachingCacheRepository) Replace(ctx context.Context, e *cache.Entry) error {
	if err := c.inner.Replace(ctx, e); err != nil {
		if c.cache != nil {
			_ = c.cache.Delete(ctx, cacheEntryKey(e.CacheKey))
		}
		return err
	}
	// Overwrite cache
	c.remember(ctx, e)
	return nil
}

func (c *CachingCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.inner.DeleteOlderThan(ctx, cutoff)
}

func (c *CachingCacheRepository) FindByProviderAndDate(ctx context.Context, providerType, date string) ([]*cache.Entry, error) {
	return c.inner.FindByProviderAndDate(ctx, providerType, date)
}

func (c *CachingCacheRepository) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

// CachingSubscriberRepository decorates a SubscriberRepository with cache-aside.
type CachingSubscriberRepository struct {
	inner ports.SubscriberRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingSubscriberRepository(inner ports.SubscriberRepository, c ports.Cache, ttl time.Duration) ports.SubscriberRepository {
	return &CachingSubscriberRepository{inner: inner, cache: c, ttl: ttl}
}

func subscriberIDKey(id uuid.UUID) string { return "subscriber:id:" + id.String() }

func subscriberEmailKey(email string) string { return "subscriber:email:" + strings.ToLower(email) }

func (c *CachingSubscriberRepository) remember(ctx context.Context, s *subscriber.Subscriber) {
	cacheSetSilently(c.cache, ctx, subscriberIDKey(s.ID), s, c.ttl)
	cacheSetSilently(c.cache, ctx, subscriberEmailKey(s.Email), s, c.ttl)
}

func (c *CachingSubscriberRepository) GetByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	if v, ok := cacheGet[subscriber.Subscriber](c.cache, ctx, subscriberIDKey(id)); ok {
		return v, nil
	}
	s, err := c.inner.GetByID(ctx, id)
	if err == nil {
		c.remember(ctx, s)
	}
	return s, err
}

func (c *CachingSubscriberRepository) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	key := subscriberEmailKey(email)
	if v, ok := cacheGet[subscriber.Subscriber](c.cache, ctx, key); ok {
		return v, nil
	}
	// every provider resolves the same subscriber during one generation
	return loadWithSingleflight(key, func() (*subscriber.Subscriber, error) {
		s, err := c.inner.GetByEmail(ctx, email)
		if err == nil {
			c.remember(ctx, s)
		}
		return s, err
	})
}

func (c *CachingSubscriberRepository) ListDue(ctx context.Context, cutoff time.Time) ([]*subscriber.Subscriber, error) {
	return c.inner.ListDue(ctx, cutoff)
}

func (c *CachingSubscriberRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	cached, _ := cacheGet[subscriber.Subscriber](c.cache, ctx, subscriberIDKey(id))
	if err := c.inner.MarkEmailSent(ctx, id, at); err != nil {
		return err
	}
	if c.cache != nil {
		_ = c.cache.Delete(ctx, subscriberIDKey(id))
		if cached != nil {
			_ = c.cache.Delete(ctx, subscriberEmailKey(cached.Email))
		}
	}
	return nil
}

// Simple validation to ensure decorators implement interfaces at compile time
var _ ports.CacheRepository = (*CachingCacheRepository)(nil)
var _ ports.SubscriberRepository = (*CachingSubscriberRepository)(nil)

// singleflight group for coalescing cache-miss loads in-process
var sf singleflight.Group
