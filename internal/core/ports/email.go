package ports

import (
	"context"
)

// EmailSender delivers a rendered message. body may contain markdown or HTML.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
