package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/subscriber"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/db"
)

// SubscriberRepository implements the subscriber repository interface
type SubscriberRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewSubscriberRepository creates a new subscriber repository
func NewSubscriberRepository(database *db.Database, logger *logrus.Logger) ports.SubscriberRepository {
	return &SubscriberRepository{
		db:     database,
		logger: logger,
	}
}

const subscriberColumns = `id, email, language, ai_provider, search_provider, account_status, preferences, last_email_sent, created_at`

// GetByID retrieves a subscriber by ID
func (r *SubscriberRepository) GetByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error) {
	var s subscriber.Subscriber
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE id = $1`

	err := r.db.DB.GetContext(ctx, &s, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"subscriber_id": id}).Debug("db: subscriber not found by ID")
			}
			return nil, ports.ErrSubscriberNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"subscriber_id": id}).WithError(err).Error("db: failed to get subscriber by ID")
		}
		return nil, fmt.Errorf("failed to get subscriber by ID: %w", err)
	}

	return &s, nil
}

// GetByEmail retrieves a subscriber by email, ignoring case
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	var s subscriber.Subscriber
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE lower(email) = lower($1)`

	err := r.db.DB.GetContext(ctx, &s, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"email": email}).Debug("db: subscriber not found by email")
			}
			return nil, ports.ErrSubscriberNotFound
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"email": email}).WithError(err).Error("db: failed to get subscriber by email")
		}
		return nil, fmt.Errorf("failed to get subscriber by email: %w", err)
	}

	return &s, nil
}

// ListDue returns active subscribers whose last email predates cutoff
func (r *SubscriberRepository) ListDue(ctx context.Context, cutoff time.Time) ([]*subscriber.Subscriber, error) {
	var subs []*subscriber.Subscriber
	query := `
		SELECT ` + subscriberColumns + `
		FROM subscribers
		WHERE account_status = $1 AND (last_email_sent IS NULL OR last_email_sent < $2)
		ORDER BY created_at`

	if err := r.db.DB.SelectContext(ctx, &subs, query, subscriber.StatusActive, cutoff); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"cutoff": cutoff}).WithError(err).Error("db: failed to list due subscribers")
		}
		return nil, fmt.Errorf("failed to list due subscribers: %w", err)
	}
	return subs, nil
}

// MarkEmailSent stamps last_email_sent
func (r *SubscriberRepository) MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.DB.ExecContext(ctx, `UPDATE subscribers SET last_email_sent = $2 WHERE id = $1`, id, at)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"subscriber_id": id}).WithError(err).Error("db: failed to mark email sent")
		}
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ports.ErrSubscriberNotFound
	}
	return nil
}
