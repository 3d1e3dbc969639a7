package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/ports"
)

// SchedulerConfig groups configuration parameters for background jobs.
type SchedulerConfig struct {
	// DeliveryInterval is how often due subscribers are checked.
	DeliveryInterval time.Duration
	// DaysInterval is the minimum number of days between two emails to one subscriber.
	DaysInterval int
	// SweepInterval is how often expired cache entries are removed.
	SweepInterval time.Duration
	DaysToKeep    int
	// JobTimeout bounds a single run of either job.
	JobTimeout time.Duration
}

// Scheduler runs the delivery job and the cache sweep on tickers.
type Scheduler struct {
	newsletter ports.NewsletterService
	cache      ports.CacheStore
	cfg        SchedulerConfig
	logger     *logrus.Logger
}

func NewScheduler(newsletter ports.NewsletterService, cacheStore ports.CacheStore, cfg *SchedulerConfig, logger *logrus.Logger) *Scheduler {
	c := SchedulerConfig{
		DeliveryInterval: time.Hour,
		DaysInterval:     6,
		SweepInterval:    24 * time.Hour,
		DaysToKeep:       7,
		JobTimeout:       time.Hour,
	}
	if cfg != nil {
		if cfg.DeliveryInterval > 0 {
			c.DeliveryInterval = cfg.DeliveryInterval
		}
		if cfg.DaysInterval > 0 {
			c.DaysInterval = cfg.DaysInterval
		}
		if cfg.SweepInterval > 0 {
			c.SweepInterval = cfg.SweepInterval
		}
		if cfg.DaysToKeep > 0 {
			c.DaysToKeep = cfg.DaysToKeep
		}
		if cfg.JobTimeout > 0 {
			c.JobTimeout = cfg.JobTimeout
		}
	}
	return &Scheduler{newsletter: newsletter, cache: cacheStore, cfg: c, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	delivery := time.NewTicker(s.cfg.DeliveryInterval)
	defer delivery.Stop()
	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-delivery.C:
			s.RunDelivery(ctx)
		case <-sweep.C:
			s.RunSweep(ctx)
		}
	}
}

func (s *Scheduler) RunDelivery(ctx context.Context) {
	if s.newsletter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	if _, err := s.newsletter.ProcessPendingEmails(ctx, s.cfg.DaysInterval); err != nil && s.logger != nil {
		s.logger.WithError(err).Error("scheduler: delivery run failed")
	}
}

func (s *Scheduler) RunSweep(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	n, err := s.cache.ClearExpired(ctx, s.cfg.DaysToKeep)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("scheduler: cache sweep failed")
		return
	}
	s.logger.WithField("deleted", n).Info("scheduler: cache sweep finished")
}
