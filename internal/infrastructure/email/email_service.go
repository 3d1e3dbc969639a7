package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/updateme/engine/internal/core/ports"
)

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// EmailService sends summaries through SendGrid. Markdown bodies are rendered
// to HTML; bodies that already are HTML are sent as is.
type EmailService struct {
	config *EmailConfig
	logger *logrus.Logger
	client *sendgrid.Client
	md     goldmark.Markdown
}

var _ ports.EmailSender = (*EmailService)(nil)

// NewEmailService creates a new email service instance
func NewEmailService(config *EmailConfig, logger *logrus.Logger) (*EmailService, error) {
	if config.SendGridAPIKey == "" {
		return nil, fmt.Errorf("sendgrid api key not configured")
	}
	return &EmailService{
		config: config,
		logger: logger,
		client: sendgrid.NewSendClient(config.SendGridAPIKey),
		md:     newMarkdown(),
	}, nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
	)
}

// RenderHTML turns a model-written markdown body into HTML.
func RenderHTML(md goldmark.Markdown, body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "<") {
		return body, nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// Send sends an email using SendGrid
func (e *EmailService) Send(ctx context.Context, to, subject, body string) error {
	htmlContent, err := RenderHTML(e.md, body)
	if err != nil {
		return err
	}

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, body, htmlContent)

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		e.logger.WithFields(logrus.Fields{
			"to":          to,
			"subject":     subject,
			"status_code": response.StatusCode,
		}).Error("SendGrid rejected email")
		return fmt.Errorf("failed to send email: sendgrid status %d: %s", response.StatusCode, response.Body)
	}

	e.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"status_code": response.StatusCode,
	}).Info("Email sent successfully")

	return nil
}

// LogSender writes emails to the log instead of sending them. Used when no
// SendGrid key is configured and by the CLI dry-run mode.
type LogSender struct {
	logger *logrus.Logger
	md     goldmark.Markdown
}

var _ ports.EmailSender = (*LogSender)(nil)

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger, md: newMarkdown()}
}

func (l *LogSender) Send(_ context.Context, to, subject, body string) error {
	htmlContent, err := RenderHTML(l.md, body)
	if err != nil {
		return err
	}
	l.logger.WithFields(logrus.Fields{
		"to":        to,
		"subject":   subject,
		"html_size": len(htmlContent),
	}).Info("Email not sent: log sender active")
	return nil
}
