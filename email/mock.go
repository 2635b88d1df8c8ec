package email

import (
	"context"
	"log/slog"
)

// MockProvider logs report emails instead of sending them, for local runs
// without mail credentials.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a mock email provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Send logs the report email it would have sent.
func (m *MockProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.Info("MOCK EMAIL: report not sent",
		"to", sanitizeHeader(to),
		"subject", sanitizeHeader(subject),
		"body_length", len(htmlBody))
	return nil
}
