package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// SMTPProvider sends report emails through a plain SMTP relay. STARTTLS is
// negotiated by net/smtp when the server advertises it.
type SMTPProvider struct {
	host     string
	port     int
	username string
	password string
	fromAddr string
	logger   *slog.Logger
}

// NewSMTPProvider creates an SMTP email provider.
func NewSMTPProvider(host string, port int, username, password, fromAddr string, logger *slog.Logger) *SMTPProvider {
	return &SMTPProvider{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromAddr: fromAddr,
		logger:   logger,
	}
}

// Send delivers one report email through the relay.
func (p *SMTPProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	to = sanitizeHeader(to)
	from := sanitizeHeader(p.fromAddr)
	msg := []byte(mimeMessage(from, to, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	err := retry.Do(
		func() error {
			start := time.Now()
			if err := smtp.SendMail(addr, auth, from, []string{to}, msg); err != nil {
				p.logger.Warn("SMTP send failed",
					"server", addr,
					"to", to,
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err)
				return err
			}
			p.logger.Info("Report email sent via SMTP",
				"server", addr,
				"to", to,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Info("Retrying SMTP send after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
