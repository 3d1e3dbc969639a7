package delivery

import (
	"time"

	"github.com/google/uuid"
)

// Source tells where the body of a summary came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceHistory  Source = "history"
	SourceStatic   Source = "static"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Kind distinguishes the scheduled weekly send from the one triggered on subscribe.
type Kind string

const (
	KindWeekly Kind = "weekly"
	KindFirst  Kind = "first"
)

// Delivery records one attempt to mail a summary.
type Delivery struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SubscriberID *uuid.UUID `json:"subscriber_id" db:"subscriber_id"`
	Email        string     `json:"email" db:"email"`
	Kind         Kind       `json:"kind" db:"kind"`
	Provider     string     `json:"provider" db:"provider"`
	Source       Source     `json:"source" db:"source"`
	Status       Status     `json:"status" db:"status"`
	Error        *string    `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Filter narrows a delivery listing.
type Filter struct {
	Email  *string    `json:"email,omitempty"`
	Status *Status    `json:"status,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Summary is the outcome of one orchestrated generation.
type Summary struct {
	Body     string `json:"body"`
	Provider string `json:"provider"`
	Source   Source `json:"source"`
}
