// Package notify routes rendered update reports to the configured channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github-sentinel/pkg/sentinel"
	"github-sentinel/report"
)

// Emailer sends a rendered report by email.
type Emailer interface {
	SendReport(ctx context.Context, subject, htmlBody string) error
}

// Notifier delivers reports to console, email, or webhook channels. Email
// and webhook deliveries also echo the report to the console so the
// operator always sees the result locally.
type Notifier struct {
	renderer   *report.Renderer
	emailer    Emailer // nil unless the email channel is configured
	webhookURL string
	freq       sentinel.Frequency
	client     *http.Client
	out        io.Writer
	logger     *slog.Logger
}

// New creates a notifier. out receives console reports (normally os.Stdout).
func New(renderer *report.Renderer, emailer Emailer, webhookURL string, freq sentinel.Frequency, out io.Writer, logger *slog.Logger) *Notifier {
	return &Notifier{
		renderer:   renderer,
		emailer:    emailer,
		webhookURL: webhookURL,
		freq:       freq,
		client:     &http.Client{Timeout: 30 * time.Second},
		out:        out,
		logger:     logger,
	}
}

// Deliver routes the updates through the requested channel. Failures are
// logged and returned but never abort the console echo.
func (n *Notifier) Deliver(ctx context.Context, updates []sentinel.RepoUpdate, channel sentinel.Channel) error {
	switch channel {
	case sentinel.ChannelConsole:
		return n.deliverConsole(updates)
	case sentinel.ChannelEmail:
		err := n.deliverEmail(ctx, updates)
		if consoleErr := n.deliverConsole(updates); consoleErr != nil && err == nil {
			err = consoleErr
		}
		return err
	case sentinel.ChannelWebhook:
		err := n.deliverWebhook(ctx, updates)
		if consoleErr := n.deliverConsole(updates); consoleErr != nil && err == nil {
			err = consoleErr
		}
		return err
	default:
		n.logger.Warn("Unsupported notification channel, falling back to console", "channel", channel)
		return n.deliverConsole(updates)
	}
}

func (n *Notifier) deliverConsole(updates []sentinel.RepoUpdate) error {
	if _, err := fmt.Fprintln(n.out, n.renderer.Text(updates)); err != nil {
		return fmt.Errorf("write console report: %w", err)
	}
	return nil
}

func (n *Notifier) deliverEmail(ctx context.Context, updates []sentinel.RepoUpdate) error {
	if n.emailer == nil {
		n.logger.Warn("Email channel selected but no email sender configured, skipping")
		return nil
	}

	subject := fmt.Sprintf("GitHub Sentinel update report (%s)", time.Now().UTC().Format("2006-01-02"))
	body := htmlBody(n.renderer.Markdown(updates))
	if err := n.emailer.SendReport(ctx, subject, body); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	return nil
}

// webhookPayload is the JSON document POSTed to the configured webhook.
type webhookPayload struct {
	ReportTime string                `json:"report_time"`
	Frequency  sentinel.Frequency    `json:"frequency"`
	Updates    []sentinel.RepoUpdate `json:"updates"`
}

func (n *Notifier) deliverWebhook(ctx context.Context, updates []sentinel.RepoUpdate) error {
	if n.webhookURL == "" {
		n.logger.Warn("Webhook channel selected but no URL configured, skipping")
		return nil
	}

	payload := webhookPayload{
		ReportTime: time.Now().UTC().Format(time.RFC3339),
		Frequency:  n.freq,
		Updates:    updates,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return retry.Do(
		func() error {
			n.logger.Info("Webhook request starting",
				"method", "POST",
				"url", n.webhookURL,
				"update_count", len(updates))

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(jsonData))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			startTime := time.Now()
			resp, err := n.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				n.logger.Warn("Webhook request failed, will retry",
					"url", n.webhookURL,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					n.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				n.logger.Warn("Webhook returned non-2xx status, will retry",
					"status_code", resp.StatusCode,
					"url", n.webhookURL)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			n.logger.Info("Webhook request completed",
				"url", n.webhookURL,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(nth uint, err error) {
			n.logger.Info("Retrying webhook delivery after error", "attempt", nth, "error", err)
		}),
	)
}
