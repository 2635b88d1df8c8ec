// Package sentinel contains the core domain types for the GitHub repository tracker.
package sentinel

import (
	"fmt"
	"strings"
	"time"
)

// EventKind identifies a category of repository activity a subscription watches.
type EventKind string

const (
	EventCommits      EventKind = "commits"
	EventPullRequests EventKind = "pull_requests"
	EventIssues       EventKind = "issues"
	EventReleases     EventKind = "releases"
)

// AllEventKinds returns every supported event kind. The set is closed: any
// other value is a validation error, not a new variant.
func AllEventKinds() []EventKind {
	return []EventKind{EventCommits, EventPullRequests, EventIssues, EventReleases}
}

// ParseEventKind validates a raw event token against the closed set.
func ParseEventKind(s string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllEventKinds() {
		if kind == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q (supported: %s)", s, JoinEventKinds(AllEventKinds()))
}

// JoinEventKinds formats a kind list for display, preserving order.
func JoinEventKinds(kinds []EventKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// Frequency is how often the scheduled update check runs.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// Window returns the look-back duration covered by one check at this frequency.
func (f Frequency) Window() time.Duration {
	if f == Weekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Channel selects where a rendered report is delivered.
type Channel string

const (
	ChannelConsole Channel = "console"
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Subscription represents a tracked repository and the event kinds watched on it.
type Subscription struct {
	Owner  string      `json:"owner"`
	Repo   string      `json:"repo"`
	Events []EventKind `json:"watch_events"`
}

// Key returns the dedup key for a subscription. Matching is case-insensitive
// because GitHub owner and repository names are.
func (s Subscription) Key() string {
	return strings.ToLower(s.Owner) + "/" + strings.ToLower(s.Repo)
}

// Watches reports whether the subscription tracks the given event kind.
func (s Subscription) Watches(kind EventKind) bool {
	for _, k := range s.Events {
		if k == kind {
			return true
		}
	}
	return false
}

// Commit is a normalized commit record.
type Commit struct {
	SHA         string    `json:"sha"` // abbreviated
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	CreatedAt   time.Time `json:"created_at"`
	URL         string    `json:"url"`
}

// PullRequest is a normalized pull request record.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Merged    bool      `json:"merged"`
	MergedAt  time.Time `json:"merged_at,omitzero"`
	URL       string    `json:"url"`
}

// Issue is a normalized issue record.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ClosedAt  time.Time `json:"closed_at,omitzero"`
	URL       string    `json:"url"`
}

// Release is a normalized release record.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Body        string    `json:"body"` // truncated for display
	URL         string    `json:"url"`
}

// RepoUpdate holds the normalized updates for one repository over one check window.
type RepoUpdate struct {
	Owner        string        `json:"owner"`
	Repo         string        `json:"repo"`
	CheckedAt    time.Time     `json:"checked_at"`
	Commits      []Commit      `json:"commits,omitempty"`
	PullRequests []PullRequest `json:"pull_requests,omitempty"`
	Issues       []Issue       `json:"issues,omitempty"`
	Releases     []Release     `json:"releases,omitempty"`
}

// HasUpdates reports whether any event kind saw activity in the window.
func (u RepoUpdate) HasUpdates() bool {
	return len(u.Commits)+len(u.PullRequests)+len(u.Issues)+len(u.Releases) > 0
}
