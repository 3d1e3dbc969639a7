package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/updateme/engine/internal/application/prompts"
	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
)

// NewsletterConfig groups configuration parameters for delivery runs.
type NewsletterConfig struct {
	// Workers bounds concurrent subscribers; each subscriber is processed sequentially.
	Workers int
	// SendDelay paces each worker between sends.
	SendDelay time.Duration
}

type NewsletterService struct {
	summaries   ports.SummaryService
	subscribers ports.SubscriberRepository
	sender      ports.EmailSender
	deliveries  ports.DeliveryLogService
	metrics     ports.EngineMetrics
	logger      *logrus.Logger
	workers     int
	sendDelay   time.Duration
	now         func() time.Time
}

func NewNewsletterService(summaries ports.SummaryService, subscribers ports.SubscriberRepository, sender ports.EmailSender, deliveries ports.DeliveryLogService, metrics ports.EngineMetrics, cfg *NewsletterConfig, logger *logrus.Logger) *NewsletterService {
	workers := 4
	var delay time.Duration
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.SendDelay > 0 {
			delay = cfg.SendDelay
		}
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &NewsletterService{
		summaries:   summaries,
		subscribers: subscribers,
		sender:      sender,
		deliveries:  deliveries,
		metrics:     metrics,
		logger:      logger,
		workers:     workers,
		sendDelay:   delay,
		now:         time.Now,
	}
}

// ProcessPendingEmails mails every active subscriber not mailed within daysInterval days.
// Per-subscriber failures are counted, never returned.
func (s *NewsletterService) ProcessPendingEmails(ctx context.Context, daysInterval int) (*ports.JobReport, error) {
	if daysInterval <= 0 {
		daysInterval = 6
	}
	start := s.now()
	cutoff := start.UTC().Add(-time.Duration(daysInterval) * 24 * time.Hour)
	due, err := s.subscribers.ListDue(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscribers: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"due": len(due), "days_interval": daysInterval}).Info("newsletter: starting delivery run")
	}

	var sent, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, sub := range due {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := s.sendWeekly(gctx, sub); err != nil {
				failed.Add(1)
			} else {
				sent.Add(1)
			}
			if s.sendDelay > 0 {
				select {
				case <-time.After(s.sendDelay):
				case <-gctx.Done():
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &ports.JobReport{
		Total:    len(due),
		Sent:     int(sent.Load()),
		Failed:   int(failed.Load()),
		Duration: s.now().Sub(start),
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"total": report.Total, "sent": report.Sent, "failed": report.Failed, "duration": report.Duration.String()}).Info("newsletter: delivery run finished")
	}
	return report, ctx.Err()
}

func (s *NewsletterService) sendWeekly(ctx context.Context, sub *subscriber.Subscriber) error {
	summary := s.summaries.GenerateNewsSummaryDetailed(ctx, sub.Email)
	subject := prompts.WeeklySubject(sub.Language)
	err := s.sender.Send(ctx, sub.Email, subject, summary.Body)
	s.metrics.EmailSent(string(delivery.KindWeekly), err)
	s.record(ctx, sub, sub.Email, delivery.KindWeekly, summary, err)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"email": sub.Email, "provider": summary.Provider}).WithError(err).Error("newsletter: failed to send weekly email")
		}
		return err
	}
	if err := s.subscribers.MarkEmailSent(ctx, sub.ID, s.now().UTC()); err != nil {
		if s.logger != nil {
			s.logger.WithField("email", sub.Email).WithError(err).Error("newsletter: email sent but last_email_sent not updated")
		}
		return err
	}
	return nil
}

// SendFirstSummary sends the welcome message followed by a first summary.
// Only a failed welcome message is reported; a failed summary is logged.
func (s *NewsletterService) SendFirstSummary(ctx context.Context, email string) error {
	lang := subscriber.DefaultLanguage
	sub, err := s.subscribers.GetByEmail(ctx, email)
	if err == nil && sub != nil {
		lang = sub.Language.Normalize()
	} else {
		sub = nil
	}

	welcome, err := prompts.WelcomeEmail(subscriber.Username(email), lang, s.now())
	if err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}
	if err := s.sender.Send(ctx, email, prompts.WelcomeSubject(lang), welcome); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	summary := s.summaries.GenerateNewsSummaryDetailed(ctx, email)
	sendErr := s.sender.Send(ctx, email, prompts.WeeklySubject(lang), summary.Body)
	s.metrics.EmailSent(string(delivery.KindFirst), sendErr)
	s.record(ctx, sub, email, delivery.KindFirst, summary, sendErr)
	if sendErr != nil {
		if s.logger != nil {
			s.logger.WithField("email", email).WithError(sendErr).Error("newsletter: failed to send first summary")
		}
		return nil
	}
	if sub != nil {
		if err := s.subscribers.MarkEmailSent(ctx, sub.ID, s.now().UTC()); err != nil && s.logger != nil {
			s.logger.WithField("email", email).WithError(err).Warn("newsletter: last_email_sent not updated after first summary")
		}
	}
	return nil
}

func (s *NewsletterService) record(ctx context.Context, sub *subscriber.Subscriber, email string, kind delivery.Kind, summary *delivery.Summary, sendErr error) {
	if s.deliveries == nil {
		return
	}
	d := &delivery.Delivery{
		ID:        uuid.New(),
		Email:     email,
		Kind:      kind,
		Provider:  summary.Provider,
		Source:    summary.Source,
		Status:    delivery.StatusSent,
		CreatedAt: s.now().UTC(),
	}
	if sub != nil {
		id := sub.ID
		d.SubscriberID = &id
	}
	if sendErr != nil {
		msg := sendErr.Error()
		d.Status = delivery.StatusFailed
		d.Error = &msg
	}
	s.deliveries.Record(ctx, d)
}
