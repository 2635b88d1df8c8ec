package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github-sentinel/pkg/sentinel"
	"github-sentinel/report"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleUpdates() []sentinel.RepoUpdate {
	return []sentinel.RepoUpdate{
		{
			Owner:     "octocat",
			Repo:      "hello-world",
			CheckedAt: time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
			Commits: []sentinel.Commit{
				{SHA: "a1b2c3d", Message: "fix parser", Author: "Mona",
					URL: "https://github.com/octocat/hello-world/commit/a1b2c3d"},
			},
		},
	}
}

type fakeEmailer struct {
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeEmailer) SendReport(_ context.Context, subject, htmlBody string) error {
	f.calls++
	f.subject = subject
	f.body = htmlBody
	return f.err
}

func TestDeliverConsole(t *testing.T) {
	var out bytes.Buffer
	n := New(report.New(sentinel.Daily), nil, "", sentinel.Daily, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelConsole); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "octocat/hello-world") {
		t.Errorf("console report missing repository:\n%s", text)
	}
	if strings.Contains(text, "](") {
		t.Errorf("console report should use flattened links:\n%s", text)
	}
}

func TestDeliverEmailEchoesConsole(t *testing.T) {
	var out bytes.Buffer
	emailer := &fakeEmailer{}
	n := New(report.New(sentinel.Daily), emailer, "", sentinel.Daily, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelEmail); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if emailer.calls != 1 {
		t.Fatalf("emailer invoked %d times, want 1", emailer.calls)
	}
	if !strings.Contains(emailer.subject, "GitHub Sentinel update report") {
		t.Errorf("subject = %q", emailer.subject)
	}
	if !strings.Contains(emailer.body, "<html") || !strings.Contains(emailer.body, "fix parser") {
		t.Errorf("email body should be the HTML report:\n%s", emailer.body)
	}
	if !strings.Contains(out.String(), "octocat/hello-world") {
		t.Error("email delivery must also echo the report to the console")
	}
}

func TestDeliverEmailErrorStillEchoes(t *testing.T) {
	var out bytes.Buffer
	emailer := &fakeEmailer{err: errors.New("smtp down")}
	n := New(report.New(sentinel.Daily), emailer, "", sentinel.Daily, &out, discardLogger())

	err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelEmail)
	if err == nil {
		t.Fatal("Deliver should surface the email failure")
	}
	if !strings.Contains(out.String(), "octocat/hello-world") {
		t.Error("a failed email delivery must not swallow the console echo")
	}
}

func TestDeliverEmailWithoutSender(t *testing.T) {
	var out bytes.Buffer
	n := New(report.New(sentinel.Daily), nil, "", sentinel.Daily, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelEmail); err != nil {
		t.Fatalf("Deliver without an email sender should degrade, got %v", err)
	}
}

func TestDeliverWebhook(t *testing.T) {
	var got webhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out bytes.Buffer
	n := New(report.New(sentinel.Weekly), nil, srv.URL, sentinel.Weekly, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelWebhook); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if got.Frequency != sentinel.Weekly {
		t.Errorf("payload frequency = %q, want weekly", got.Frequency)
	}
	if got.ReportTime == "" {
		t.Error("payload missing report_time")
	}
	if len(got.Updates) != 1 || got.Updates[0].Repo != "hello-world" {
		t.Errorf("payload updates = %+v", got.Updates)
	}
	if !strings.Contains(out.String(), "octocat/hello-world") {
		t.Error("webhook delivery must also echo the report to the console")
	}
}

func TestDeliverWebhookRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out bytes.Buffer
	n := New(report.New(sentinel.Daily), nil, srv.URL, sentinel.Daily, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.ChannelWebhook); err != nil {
		t.Fatalf("Deliver should succeed after a retried 502, got %v", err)
	}
	if hits != 2 {
		t.Errorf("webhook hit %d times, want 2", hits)
	}
}

func TestDeliverUnknownChannelFallsBackToConsole(t *testing.T) {
	var out bytes.Buffer
	n := New(report.New(sentinel.Daily), nil, "", sentinel.Daily, &out, discardLogger())

	if err := n.Deliver(context.Background(), sampleUpdates(), sentinel.Channel("pager")); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(out.String(), "octocat/hello-world") {
		t.Error("unknown channel should fall back to the console report")
	}
}

func TestHTMLBody(t *testing.T) {
	md := "# Title\n\n## [octocat/hello-world](https://github.com/octocat/hello-world)\n\n" +
		"### Commits (1)\n\n- `a1b2c3d` fix <script> injection\n"
	html := htmlBody(md)

	for _, want := range []string{
		"<h1>Title</h1>",
		`<a href="https://github.com/octocat/hello-world">octocat/hello-world</a>`,
		"<h3>Commits (1)</h3>",
		"<code>a1b2c3d</code>",
		"&lt;script&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html body missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("html body must escape raw markup from commit messages")
	}
	if strings.Count(html, "<ul>") != strings.Count(html, "</ul>") {
		t.Error("unbalanced list tags")
	}
}
