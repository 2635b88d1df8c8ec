package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingProvider struct {
	to      string
	subject string
	body    string
	err     error
}

func (r *recordingProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	r.to = to
	r.subject = subject
	r.body = htmlBody
	return r.err
}

func TestSendReport(t *testing.T) {
	provider := &recordingProvider{}
	s := New(provider, "ops@example.com", discardLogger())

	err := s.SendReport(context.Background(), "daily report", "<html>body</html>")
	if err != nil {
		t.Fatalf("SendReport: %v", err)
	}
	if provider.to != "ops@example.com" {
		t.Errorf("to = %q, want configured recipient", provider.to)
	}
	if provider.subject != "daily report" || provider.body != "<html>body</html>" {
		t.Errorf("provider got subject=%q body=%q", provider.subject, provider.body)
	}
}

func TestSendReportPropagatesProviderError(t *testing.T) {
	sendErr := errors.New("provider down")
	s := New(&recordingProvider{err: sendErr}, "ops@example.com", discardLogger())

	if err := s.SendReport(context.Background(), "s", "b"); !errors.Is(err, sendErr) {
		t.Errorf("SendReport = %v, want provider error", err)
	}
}

func TestMIMEMessage(t *testing.T) {
	msg := mimeMessage("sentinel@example.com", "ops@example.com", "daily report", "<p>hi</p>")

	for _, want := range []string{
		"MIME-Version: 1.0\r\n",
		"From: sentinel@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: daily report\r\n",
		"Content-Type: text/html; charset=utf-8\r\n\r\n<p>hi</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	// Gmail fills the from header from the authenticated account.
	if msg := mimeMessage("", "ops@example.com", "s", "b"); strings.Contains(msg, "From:") {
		t.Errorf("empty from should omit the header:\n%s", msg)
	}

	if msg := mimeMessage("a@b.c", "ops@example.com", "inject\r\nBcc: evil@example.com", "b"); strings.Contains(msg, "\r\nBcc:") {
		t.Errorf("header injection survived sanitization:\n%s", msg)
	}
}

func TestSanitizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain subject", "plain subject"},
		{"inject\r\nBcc: evil@example.com", "injectBcc: evil@example.com"},
		{"tab\tseparated", "tabseparated"},
		{"del\x7fchar", "delchar"},
		{"unicode é ok", "unicode é ok"},
	}

	for _, tt := range tests {
		if got := sanitizeHeader(tt.in); got != tt.want {
			t.Errorf("sanitizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
