// Package gh fetches repository activity from the GitHub REST API.
package gh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v82/github"

	"github-sentinel/pkg/sentinel"
)

// perPage caps each listing at one page of results; a busier window than
// that is summarized rather than paginated.
const perPage = 100

// RawUpdate bundles one repository's unprocessed API payloads for one check.
// A failed fetch for an event kind leaves its slice empty rather than
// aborting the bundle.
type RawUpdate struct {
	Owner        string
	Repo         string
	FetchedAt    time.Time
	Commits      []*github.RepositoryCommit
	PullRequests []*github.PullRequest
	Issues       []*github.Issue
	Releases     []*github.RepositoryRelease
}

// Client fetches updates for subscribed repositories.
type Client struct {
	gh     *github.Client
	freq   sentinel.Frequency
	logger *slog.Logger
	now    func() time.Time
}

// New creates a client authenticated with the given token. An empty token
// produces an unauthenticated client (60 requests/hour).
func New(token string, freq sentinel.Frequency, logger *slog.Logger) *Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &Client{
		gh:     client,
		freq:   freq,
		logger: logger,
		now:    time.Now,
	}
}

// window returns the check period covered by the configured frequency.
func (c *Client) window() (start, end time.Time) {
	end = c.now().UTC()
	return end.Add(-c.freq.Window()), end
}

// FetchUpdates retrieves the watched event kinds for one subscription.
// Per-kind failures are logged and degrade to an empty slice so a single
// bad repository never aborts the batch.
func (c *Client) FetchUpdates(ctx context.Context, sub sentinel.Subscription) RawUpdate {
	raw := RawUpdate{
		Owner:     sub.Owner,
		Repo:      sub.Repo,
		FetchedAt: c.now().UTC(),
	}

	if sub.Watches(sentinel.EventCommits) {
		raw.Commits = c.listCommits(ctx, sub.Owner, sub.Repo)
	}
	if sub.Watches(sentinel.EventPullRequests) {
		raw.PullRequests = c.listPullRequests(ctx, sub.Owner, sub.Repo)
	}
	if sub.Watches(sentinel.EventIssues) {
		raw.Issues = c.listIssues(ctx, sub.Owner, sub.Repo)
	}
	if sub.Watches(sentinel.EventReleases) {
		raw.Releases = c.listReleases(ctx, sub.Owner, sub.Repo)
	}

	return raw
}

func (c *Client) listCommits(ctx context.Context, owner, repo string) []*github.RepositoryCommit {
	start, end := c.window()
	var commits []*github.RepositoryCommit

	err := c.withRetry(ctx, "list commits", owner, repo, func() error {
		var err error
		commits, _, err = c.gh.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
			Since:       start,
			Until:       end,
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		return err
	})
	if err != nil {
		c.logger.Warn("Commit fetch failed", "repo", owner+"/"+repo, "error", err)
		return nil
	}
	return commits
}

func (c *Client) listPullRequests(ctx context.Context, owner, repo string) []*github.PullRequest {
	start, _ := c.window()
	var prs []*github.PullRequest

	err := c.withRetry(ctx, "list pull requests", owner, repo, func() error {
		var err error
		prs, _, err = c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
			State:       "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		return err
	})
	if err != nil {
		c.logger.Warn("Pull request fetch failed", "repo", owner+"/"+repo, "error", err)
		return nil
	}

	// The pulls endpoint has no since parameter; trim to the window here.
	// Results are sorted by updated descending, so stop at the first stale one.
	var recent []*github.PullRequest
	for _, pr := range prs {
		if pr.GetUpdatedAt().Time.Before(start) {
			break
		}
		recent = append(recent, pr)
	}
	return recent
}

func (c *Client) listIssues(ctx context.Context, owner, repo string) []*github.Issue {
	start, _ := c.window()
	var issues []*github.Issue

	err := c.withRetry(ctx, "list issues", owner, repo, func() error {
		var err error
		issues, _, err = c.gh.Issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
			State:       "all",
			Since:       start,
			ListOptions: github.ListOptions{PerPage: perPage},
		})
		return err
	})
	if err != nil {
		c.logger.Warn("Issue fetch failed", "repo", owner+"/"+repo, "error", err)
		return nil
	}

	// The issues endpoint returns pull requests too; keep plain issues only.
	var plain []*github.Issue
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		plain = append(plain, issue)
	}
	return plain
}

func (c *Client) listReleases(ctx context.Context, owner, repo string) []*github.RepositoryRelease {
	start, end := c.window()
	var releases []*github.RepositoryRelease

	err := c.withRetry(ctx, "list releases", owner, repo, func() error {
		var err error
		releases, _, err = c.gh.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{
			PerPage: perPage,
		})
		return err
	})
	if err != nil {
		c.logger.Warn("Release fetch failed", "repo", owner+"/"+repo, "error", err)
		return nil
	}

	// The releases endpoint has no time filtering at all.
	var recent []*github.RepositoryRelease
	for _, rel := range releases {
		created := rel.GetCreatedAt().Time
		if created.Before(start) || created.After(end) {
			continue
		}
		recent = append(recent, rel)
	}
	return recent
}

// withRetry wraps one API listing in the standard retry policy. Rate-limit
// errors are not retried: the reset is typically further away than any
// sensible backoff, so the kind degrades to empty for this run instead.
func (c *Client) withRetry(ctx context.Context, op, owner, repo string, fn func() error) error {
	return retry.Do(
		func() error {
			startTime := time.Now()
			err := fn()
			duration := time.Since(startTime)

			if err != nil {
				c.logger.Warn("GitHub API request failed",
					"operation", op,
					"repo", owner+"/"+repo,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}

			c.logger.Debug("GitHub API request completed",
				"operation", op,
				"repo", owner+"/"+repo,
				"duration_ms", duration.Milliseconds())
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying GitHub request after error", "operation", op, "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			var rateLimit *github.RateLimitError
			return !errors.As(err, &rateLimit)
		}),
	)
}
