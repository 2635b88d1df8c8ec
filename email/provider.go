// Package email delivers report emails via multiple providers.
package email

import (
	"context"
	"log/slog"
	"strings"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send sends an email with the given parameters.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sender sends report emails using a pluggable provider.
type Sender struct {
	provider  Provider
	logger    *slog.Logger
	recipient string
}

// New creates a new email sender delivering to the configured recipient.
func New(provider Provider, recipient string, logger *slog.Logger) *Sender {
	return &Sender{
		provider:  provider,
		logger:    logger,
		recipient: recipient,
	}
}

// SendReport sends an update report to the configured recipient.
func (s *Sender) SendReport(ctx context.Context, subject, htmlBody string) error {
	s.logger.Info("Sending report email",
		"to", s.recipient,
		"subject", subject,
		"body_length", len(htmlBody))

	return s.provider.Send(ctx, s.recipient, subject, htmlBody)
}

// sanitizeHeader removes newlines and control characters to prevent header
// injection. RFC 5322 headers are newline-delimited, so any newline in a
// header value allows an attacker to inject arbitrary headers or body content.
func sanitizeHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// mimeMessage assembles the HTML email all providers send. The from header
// is omitted when empty; the Gmail API fills it from the authenticated
// account.
func mimeMessage(from, to, subject, htmlBody string) string {
	var msg strings.Builder
	msg.WriteString("MIME-Version: 1.0\r\n")
	if from != "" {
		msg.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	}
	msg.WriteString("To: " + sanitizeHeader(to) + "\r\n")
	msg.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.WriteString(htmlBody)
	return msg.String()
}
