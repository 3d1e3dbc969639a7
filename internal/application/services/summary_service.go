package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/application/prompts"
	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
)

// SummaryConfig groups configuration parameters for the orchestrator.
type SummaryConfig struct {
	// CandidateTimeout bounds a single provider attempt. Zero disables it.
	CandidateTimeout time.Duration
	// LookbackDays is how many day buckets (today included) are searched for
	// a previously generated summary.
	LookbackDays int
}

// SummaryService tries each completion provider in turn, then recent cached
// summaries, then static content.
type SummaryService struct {
	registry         ports.ProviderRegistry
	cache            ports.CacheStore
	subscribers      ports.SubscriberRepository
	metrics          ports.EngineMetrics
	logger           *logrus.Logger
	candidateTimeout time.Duration
	lookbackDays     int
}

func NewSummaryService(registry ports.ProviderRegistry, cacheStore ports.CacheStore, subscribers ports.SubscriberRepository, metrics ports.EngineMetrics, cfg *SummaryConfig, logger *logrus.Logger) *SummaryService {
	timeout := 2 * time.Minute
	lookback := 3
	if cfg != nil {
		if cfg.CandidateTimeout >= 0 {
			timeout = cfg.CandidateTimeout
		}
		if cfg.LookbackDays > 0 {
			lookback = cfg.LookbackDays
		}
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &SummaryService{
		registry:         registry,
		cache:            cacheStore,
		subscribers:      subscribers,
		metrics:          metrics,
		logger:           logger,
		candidateTimeout: timeout,
		lookbackDays:     lookback,
	}
}

func (s *SummaryService) GenerateNewsSummary(ctx context.Context, email string) string {
	return s.GenerateNewsSummaryDetailed(ctx, email).Body
}

func (s *SummaryService) GenerateNewsSummaryDetailed(ctx context.Context, email string) *delivery.Summary {
	username := subscriber.Username(email)
	lang := subscriber.DefaultLanguage
	preferred := s.registry.Default()
	if sub := s.lookup(ctx, email); sub != nil {
		lang = sub.Language.Normalize()
		if _, ok := s.registry.Get(sub.AIProvider); ok {
			preferred = sub.AIProvider
		} else if sub.AIProvider != "" && s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "ai_provider": sub.AIProvider}).Warn("summary: preferred provider not registered; using default")
		}
	}

	candidates := s.registry.Candidates(preferred)
	for _, p := range candidates {
		body, err := s.attempt(ctx, p, email)
		s.metrics.CandidateResult(p.Name(), err == nil)
		if err == nil {
			s.metrics.SummarySource(string(delivery.SourceProvider))
			return &delivery.Summary{Body: body, Provider: p.Name(), Source: delivery.SourceProvider}
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "provider": p.Name()}).WithError(err).Warn("summary: provider failed; trying next")
		}
		if ctx.Err() != nil {
			break
		}
	}

	if body, provider, ok := s.fromHistory(ctx, candidates, username, lang); ok {
		s.metrics.SummarySource(string(delivery.SourceHistory))
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": email, "provider": provider}).Info("summary: served from cached history")
		}
		return &delivery.Summary{Body: body, Provider: provider, Source: delivery.SourceHistory}
	}

	s.metrics.SummarySource(string(delivery.SourceStatic))
	if s.logger != nil {
		s.logger.WithField("email", email).Warn("summary: all providers and history exhausted; using static content")
	}
	return &delivery.Summary{Body: prompts.Fallback(username, lang), Source: delivery.SourceStatic}
}

func (s *SummaryService) attempt(ctx context.Context, p ports.CompletionProvider, email string) (string, error) {
	if s.candidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.candidateTimeout)
		defer cancel()
	}
	return p.GenerateNewsSummary(ctx, email).Unpack()
}

// fromHistory walks candidates in order and, for each, the last lookbackDays
// day buckets, stopping at the first stored summary.
func (s *SummaryService) fromHistory(ctx context.Context, candidates []ports.CompletionProvider, username string, lang subscriber.Language) (string, string, bool) {
	if s.cache == nil {
		return "", "", false
	}
	today := s.cache.Today()
	for _, p := range candidates {
		tag := cache.NewsTag(p.Name())
		for d := 0; d < s.lookbackDays; d++ {
			entries, err := s.cache.GetByProviderAndDate(ctx, tag, today.AddDate(0, 0, -d))
			if err != nil {
				if s.logger != nil {
					s.logger.WithField("provider_type", tag).WithError(err).Warn("summary: history lookup failed")
				}
				continue
			}
			if text, ok := pickHistoryEntry(entries, lang); ok {
				return prompts.Email(username, text, lang), p.Name(), true
			}
		}
	}
	return "", "", false
}

// pickHistoryEntry returns the newest non-empty body, preferring lang.
func pickHistoryEntry(entries []*cache.Entry, lang subscriber.Language) (string, bool) {
	var best, bestAnyLang *cache.Entry
	for _, e := range entries {
		if e == nil || e.Payload.AsText() == "" {
			continue
		}
		if bestAnyLang == nil || e.CreatedAt.After(bestAnyLang.CreatedAt) {
			bestAnyLang = e
		}
		if l, _ := e.Payload.Record["language"].(string); l == string(lang) {
			if best == nil || e.CreatedAt.After(best.CreatedAt) {
				best = e
			}
		}
	}
	if best == nil {
		best = bestAnyLang
	}
	if best == nil {
		return "", false
	}
	return best.Payload.AsText(), true
}

func (s *SummaryService) lookup(ctx context.Context, email string) *subscriber.Subscriber {
	if s.subscribers == nil {
		return nil
	}
	sub, err := s.subscribers.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ports.ErrSubscriberNotFound) && s.logger != nil {
			s.logger.WithField("email", email).WithError(err).Warn("summary: subscriber lookup failed")
		}
		return nil
	}
	return sub
}
