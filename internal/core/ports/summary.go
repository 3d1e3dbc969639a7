package ports

import (
	"context"
	"time"

	"github.com/updateme/engine/internal/core/domain/delivery"
)

// SummaryService is the fallback orchestrator.
type SummaryService interface {
	// GenerateNewsSummary always returns content.
	GenerateNewsSummary(ctx context.Context, email string) string
	GenerateNewsSummaryDetailed(ctx context.Context, email string) *delivery.Summary
}

// JobReport counts the outcome of one delivery run.
type JobReport struct {
	Total    int           `json:"total"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// NewsletterService mails summaries to subscribers.
type NewsletterService interface {
	ProcessPendingEmails(ctx context.Context, daysInterval int) (*JobReport, error)
	SendFirstSummary(ctx context.Context, email string) error
}

// OpsClaims identifies the caller of the ops API.
type OpsClaims struct {
	Subject string
	Role    string
}

// OpsAuthService issues and validates tokens for the ops API.
type OpsAuthService interface {
	IssueToken(subject string, ttl time.Duration) (string, error)
	ValidateToken(token string) (*OpsClaims, error)
}
