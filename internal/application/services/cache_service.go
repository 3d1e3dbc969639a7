package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/ports"
)

// CacheService implements ports.CacheStore on top of a CacheRepository.
// Day scoping lives in the fingerprint: the key embeds the current date, so a
// lookup never sees entries produced for another day.
type CacheService struct {
	repo   ports.CacheRepository
	logger *logrus.Logger
	now    func() time.Time
	loc    *time.Location

	hits   atomic.Int64
	misses atomic.Int64
}

type CacheOption func(*CacheService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(s *CacheService) { s.now = now }
}

// WithLocation sets the time zone that defines day boundaries. Defaults to UTC.
func WithLocation(loc *time.Location) CacheOption {
	return func(s *CacheService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewCacheService creates the day-scoped cache store over repo.
func NewCacheService(repo ports.CacheRepository, logger *logrus.Logger, opts ...CacheOption) *CacheService {
	s := &CacheService{repo: repo, logger: logger, now: time.Now, loc: time.UTC}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today returns midnight of the current day in the configured location.
func (s *CacheService) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

func (s *CacheService) today() string { return s.Today().Format(cache.DateLayout) }

// GenerateKey fingerprints (normalized query, provider tag, today, extra).
// Extra keys overlay the base fields.
func (s *CacheService) GenerateKey(query, providerType string, extra map[string]any) string {
	data := map[string]any{
		"query":    strings.ToLower(strings.TrimSpace(query)),
		"provider": providerType,
		"date":     s.today(),
	}
	for k, v := range extra {
		data[k] = v
	}
	// encoding/json writes map keys in sorted order
	b, err := json.Marshal(data)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", data))
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Get returns the payload stored under key today. Entries from other days
// and storage errors are misses.
func (s *CacheService) Get(ctx context.Context, key string) (cache.Payload, bool) {
	e, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("cache_key", key).WithError(err).Warn("cache: lookup failed; treating as miss")
		}
		s.misses.Add(1)
		return cache.Payload{}, false
	}
	if e == nil || e.CreatedDate != s.today() {
		s.misses.Add(1)
		return cache.Payload{}, false
	}
	s.hits.Add(1)
	return e.Payload, true
}

// GetAllByProviderToday lists today's entries for a provider tag.
func (s *CacheService) GetAllByProviderToday(ctx context.Context, providerType string) []*cache.Entry {
	entries, err := s.repo.FindByProviderAndDate(ctx, providerType, s.today())
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("provider_type", providerType).WithError(err).Warn("cache: failed to list today's entries")
		}
		return nil
	}
	return entries
}

// Save replaces any entry under key, stamped with the current day.
func (s *CacheService) Save(ctx context.Context, key string, payload cache.Payload, providerType, query string, ttlDays int) {
	if ttlDays <= 0 {
		ttlDays = cache.DefaultTTLDays
	}
	var q *string
	if query != "" {
		q = &query
	}
	e := &cache.Entry{
		ID:           uuid.New(),
		CacheKey:     key,
		Payload:      payload,
		CreatedAt:    s.now().UTC(),
		CreatedDate:  s.today(),
		ProviderType: providerType,
		Query:        q,
		Tags:         []string{providerType},
		TTLDays:      ttlDays,
	}
	if err := s.repo.Replace(ctx, e); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"cache_key": key, "provider_type": providerType}).WithError(err).Error("cache: failed to save entry")
		}
		return
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"cache_key": key, "provider_type": providerType}).Debug("cache: entry saved")
	}
}

// ClearExpired removes entries created more than daysToKeep days ago.
func (s *CacheService) ClearExpired(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = cache.DefaultDaysToKeep
	}
	cutoff := s.now().UTC().Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache entries: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"deleted": n, "days_to_keep": daysToKeep}).Info("cache: expired entries cleared")
	}
	return n, nil
}

// GetByProviderAndDate lists entries for a provider tag created on date's day.
func (s *CacheService) GetByProviderAndDate(ctx context.Context, providerType string, date time.Time) ([]*cache.Entry, error) {
	d := date.In(s.loc).Format(cache.DateLayout)
	entries, err := s.repo.FindByProviderAndDate(ctx, providerType, d)
	if err != nil {
		return nil, fmt.Errorf("failed to find cache entries for %s on %s: %w", providerType, d, err)
	}
	return entries, nil
}

// Stats reports the stored entry count and this process's hit/miss counters.
func (s *CacheService) Stats(ctx context.Context) (*cache.Stats, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return &cache.Stats{Entries: n, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}
