package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/updateme/engine/internal/core/domain/subscriber"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

// SubscriberRepository is the read side of the account store plus the
// last-sent bookkeeping the delivery job needs.
type SubscriberRepository interface {
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error)
	GetByID(ctx context.Context, id uuid.UUID) (*subscriber.Subscriber, error)
	// ListDue returns active subscribers never mailed or last mailed before cutoff.
	ListDue(ctx context.Context, cutoff time.Time) ([]*subscriber.Subscriber, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID, at time.Time) error
}
