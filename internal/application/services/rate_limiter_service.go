package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/ports"
)

// RateLimiterService throttles outbound calls with a fixed-window counter per provider.
type RateLimiterService struct {
	repo            ports.RateLimitRepository
	defaultLimit    int
	limits          map[string]int
	burstMultiplier float64
	window          time.Duration
	keyPrefix       string
	logger          *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	DefaultCallsPerMinute int
	// ProviderCallsPerMinute overrides the default for a named provider or search backend.
	ProviderCallsPerMinute map[string]int
	BurstMultiplier        float64
	Window                 time.Duration
	KeyPrefix              string
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	dl := 60
	bm := 1.0
	w := time.Minute
	kp := "ratelimit:provider"
	limits := map[string]int{}
	if cfg != nil {
		if cfg.DefaultCallsPerMinute > 0 {
			dl = cfg.DefaultCallsPerMinute
		}
		if cfg.BurstMultiplier > 0 {
			bm = cfg.BurstMultiplier
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		if cfg.KeyPrefix != "" {
			kp = cfg.KeyPrefix
		}
		for name, l := range cfg.ProviderCallsPerMinute {
			if l > 0 {
				limits[name] = l
			}
		}
	}
	return &RateLimiterService{repo: repo, defaultLimit: dl, limits: limits, burstMultiplier: bm, window: w, keyPrefix: kp, logger: logger}
}

func (s *RateLimiterService) limitFor(provider string) int {
	if l, ok := s.limits[provider]; ok {
		return l
	}
	return s.defaultLimit
}

func (s *RateLimiterService) Allow(ctx context.Context, provider string) (bool, int, time.Time, error) {
	limit := s.limitFor(provider)
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, provider, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	burst := int(float64(limit) * s.burstMultiplier)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("provider", provider).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, burst, reset, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"provider": provider, "count": count, "burst": burst, "limit": limit}).Debug("rate limiter window state")
	}
	if count > burst {
		return false, 0, reset, nil
	}
	return true, burst - count, reset, nil
}
