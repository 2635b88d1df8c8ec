// Package process shapes raw GitHub API payloads into display-ready records.
package process

import (
	"strings"

	"github.com/google/go-github/v82/github"

	"github-sentinel/gh"
	"github-sentinel/pkg/sentinel"
)

const (
	shortSHALen       = 7
	releaseBodyRunes  = 200
	unknownAuthorName = "unknown"
)

// Processor normalizes raw update bundles.
type Processor struct{}

// New creates a processor.
func New() *Processor {
	return &Processor{}
}

// Process extracts the key fields of one repository's raw updates.
func (p *Processor) Process(raw gh.RawUpdate) sentinel.RepoUpdate {
	update := sentinel.RepoUpdate{
		Owner:     raw.Owner,
		Repo:      raw.Repo,
		CheckedAt: raw.FetchedAt,
	}

	for _, c := range raw.Commits {
		update.Commits = append(update.Commits, processCommit(c))
	}
	for _, pr := range raw.PullRequests {
		update.PullRequests = append(update.PullRequests, processPullRequest(pr))
	}
	for _, issue := range raw.Issues {
		update.Issues = append(update.Issues, processIssue(issue))
	}
	for _, rel := range raw.Releases {
		update.Releases = append(update.Releases, processRelease(rel))
	}

	return update
}

// ProcessAll normalizes a batch of raw bundles, preserving order.
func (p *Processor) ProcessAll(raws []gh.RawUpdate) []sentinel.RepoUpdate {
	updates := make([]sentinel.RepoUpdate, 0, len(raws))
	for _, raw := range raws {
		updates = append(updates, p.Process(raw))
	}
	return updates
}

// FilterNonEmpty drops repositories that saw no activity in the window.
func (p *Processor) FilterNonEmpty(updates []sentinel.RepoUpdate) []sentinel.RepoUpdate {
	var active []sentinel.RepoUpdate
	for _, u := range updates {
		if u.HasUpdates() {
			active = append(active, u)
		}
	}
	return active
}

func processCommit(c *github.RepositoryCommit) sentinel.Commit {
	sha := c.GetSHA()
	if len(sha) > shortSHALen {
		sha = sha[:shortSHALen]
	}

	// Only the subject line; commit bodies can be arbitrarily long.
	message, _, _ := strings.Cut(c.GetCommit().GetMessage(), "\n")

	author := c.GetCommit().GetAuthor()
	name := author.GetName()
	if name == "" {
		name = unknownAuthorName
	}

	return sentinel.Commit{
		SHA:         sha,
		Message:     message,
		Author:      name,
		AuthorEmail: author.GetEmail(),
		CreatedAt:   author.GetDate().Time,
		URL:         c.GetHTMLURL(),
	}
}

func processPullRequest(pr *github.PullRequest) sentinel.PullRequest {
	author := pr.GetUser().GetLogin()
	if author == "" {
		author = unknownAuthorName
	}

	return sentinel.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		Author:    author,
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
		// The list endpoint never populates the merged flag; a merge
		// timestamp is the reliable signal.
		Merged:   !pr.GetMergedAt().Time.IsZero(),
		MergedAt: pr.GetMergedAt().Time,
		URL:      pr.GetHTMLURL(),
	}
}

func processIssue(issue *github.Issue) sentinel.Issue {
	author := issue.GetUser().GetLogin()
	if author == "" {
		author = unknownAuthorName
	}

	return sentinel.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		State:     issue.GetState(),
		Author:    author,
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		ClosedAt:  issue.GetClosedAt().Time,
		URL:       issue.GetHTMLURL(),
	}
}

func processRelease(rel *github.RepositoryRelease) sentinel.Release {
	author := rel.GetAuthor().GetLogin()
	if author == "" {
		author = unknownAuthorName
	}

	body := rel.GetBody()
	if runes := []rune(body); len(runes) > releaseBodyRunes {
		body = string(runes[:releaseBodyRunes]) + "..."
	}

	return sentinel.Release{
		TagName:     rel.GetTagName(),
		Name:        rel.GetName(),
		Draft:       rel.GetDraft(),
		Prerelease:  rel.GetPrerelease(),
		Author:      author,
		CreatedAt:   rel.GetCreatedAt().Time,
		PublishedAt: rel.GetPublishedAt().Time,
		Body:        body,
		URL:         rel.GetHTMLURL(),
	}
}
