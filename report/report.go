// Package report renders normalized repository updates as markdown or plain text.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github-sentinel/pkg/sentinel"
)

// markdownLink matches [text](url) for flattening into plain text.
var markdownLink = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// Renderer builds reports for one monitoring period.
type Renderer struct {
	freq sentinel.Frequency
	now  func() time.Time
}

// New creates a renderer for the given check frequency.
func New(freq sentinel.Frequency) *Renderer {
	return &Renderer{freq: freq, now: time.Now}
}

func (r *Renderer) header() string {
	period := "last 24 hours"
	if r.freq == sentinel.Weekly {
		period = "last 7 days"
	}

	var b strings.Builder
	b.WriteString("# GitHub Sentinel repository update report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Monitoring period: %s\n\n", period)
	b.WriteString("---\n\n")
	return b.String()
}

// Markdown renders the full markdown report.
func (r *Renderer) Markdown(updates []sentinel.RepoUpdate) string {
	if len(updates) == 0 {
		return r.header() + "No repository updates detected.\n"
	}

	var b strings.Builder
	b.WriteString(r.header())
	for _, u := range updates {
		r.writeRepoSection(&b, u)
	}
	return b.String()
}

// Text renders the report for terminal output: the markdown report with
// link syntax flattened to "text (url)".
func (r *Renderer) Text(updates []sentinel.RepoUpdate) string {
	return markdownLink.ReplaceAllString(r.Markdown(updates), "$1 ($2)")
}

func (r *Renderer) writeRepoSection(b *strings.Builder, u sentinel.RepoUpdate) {
	repoURL := fmt.Sprintf("https://github.com/%s/%s", u.Owner, u.Repo)
	fmt.Fprintf(b, "## [%s/%s](%s)\n\n", u.Owner, u.Repo, repoURL)
	fmt.Fprintf(b, "Checked at: %s\n\n", u.CheckedAt.UTC().Format(time.RFC3339))

	if len(u.Commits) > 0 {
		fmt.Fprintf(b, "### Commits (%d)\n\n", len(u.Commits))
		for _, c := range u.Commits {
			fmt.Fprintf(b, "- `%s` %s\n", c.SHA, c.Message)
			fmt.Fprintf(b, "  by %s on %s - %s\n", c.Author, shortDate(c.CreatedAt), c.URL)
		}
		b.WriteString("\n")
	}

	if len(u.PullRequests) > 0 {
		fmt.Fprintf(b, "### Pull requests (%d)\n\n", len(u.PullRequests))
		for _, pr := range u.PullRequests {
			fmt.Fprintf(b, "- #%d %s [%s]\n", pr.Number, pr.Title, prState(pr))
			fmt.Fprintf(b, "  by %s, opened %s - %s\n", pr.Author, shortDate(pr.CreatedAt), pr.URL)
		}
		b.WriteString("\n")
	}

	if len(u.Issues) > 0 {
		fmt.Fprintf(b, "### Issues (%d)\n\n", len(u.Issues))
		for _, issue := range u.Issues {
			fmt.Fprintf(b, "- #%d %s [%s]\n", issue.Number, issue.Title, issue.State)
			line := fmt.Sprintf("  by %s, opened %s", issue.Author, shortDate(issue.CreatedAt))
			if !issue.ClosedAt.IsZero() {
				line += ", closed " + shortDate(issue.ClosedAt)
			}
			fmt.Fprintf(b, "%s - %s\n", line, issue.URL)
		}
		b.WriteString("\n")
	}

	if len(u.Releases) > 0 {
		fmt.Fprintf(b, "### Releases (%d)\n\n", len(u.Releases))
		for _, rel := range u.Releases {
			fmt.Fprintf(b, "- %s: %s [%s]\n", rel.TagName, rel.Name, releaseState(rel))
			fmt.Fprintf(b, "  by %s, published %s - %s\n", rel.Author, shortDate(rel.PublishedAt), rel.URL)
			if rel.Body != "" {
				fmt.Fprintf(b, "  %s\n", rel.Body)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
}

func prState(pr sentinel.PullRequest) string {
	switch {
	case pr.Merged:
		return "merged"
	case pr.State == "closed":
		return "closed"
	default:
		return "open"
	}
}

func releaseState(rel sentinel.Release) string {
	switch {
	case rel.Draft:
		return "draft"
	case rel.Prerelease:
		return "prerelease"
	default:
		return "stable"
	}
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.UTC().Format("2006-01-02")
}
