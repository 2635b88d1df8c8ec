package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github-sentinel/check"
	"github-sentinel/pkg/sentinel"
	"github-sentinel/storage"
)

// Store is the subscription store surface the executor mutates.
type Store interface {
	List() []sentinel.Subscription
	Add(ctx context.Context, owner, repo string, events []sentinel.EventKind) error
	Remove(ctx context.Context, owner, repo string) error
	Update(ctx context.Context, owner, repo string, events []sentinel.EventKind) error
}

// Fetcher runs one immediate update check.
type Fetcher interface {
	Run(ctx context.Context, channel sentinel.Channel) (int, error)
}

// Result is the outcome of executing one command. Exit marks the result of
// an exit command; the coordinator owns actual shutdown.
type Result struct {
	Text string
	Exit bool
}

// Executor runs parsed commands against the store and update pipeline. It
// never fails outward: every error becomes a descriptive result string.
type Executor struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(store Store, fetcher Fetcher, logger *slog.Logger) *Executor {
	return &Executor{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Execute runs one command and describes the outcome.
func (e *Executor) Execute(ctx context.Context, cmd *Command) Result {
	switch cmd.Kind {
	case KindAdd:
		return Result{Text: e.addSubscription(ctx, cmd)}
	case KindRemove:
		return Result{Text: e.removeSubscription(ctx, cmd)}
	case KindUpdate:
		return Result{Text: e.updateSubscription(ctx, cmd)}
	case KindList:
		return Result{Text: e.listSubscriptions()}
	case KindFetch:
		return Result{Text: e.fetchNow(ctx)}
	case KindHelp:
		return Result{Text: helpText}
	case KindExit:
		return Result{Text: "exiting...", Exit: true}
	default:
		// Unreachable through Parse, but a typed command can be built directly.
		return Result{Text: fmt.Sprintf("unknown command %q", cmd.Kind)}
	}
}

// validateEvents converts raw tokens to event kinds, collecting every
// invalid token so the operator sees them all at once.
func validateEvents(raw []string) ([]sentinel.EventKind, []string) {
	var kinds []sentinel.EventKind
	var invalid []string
	for _, token := range raw {
		kind, err := sentinel.ParseEventKind(token)
		if err != nil {
			invalid = append(invalid, token)
			continue
		}
		kinds = append(kinds, kind)
	}
	return kinds, invalid
}

func invalidEventsMessage(invalid []string) string {
	return fmt.Sprintf("error: invalid event kinds [%s], supported: %s",
		strings.Join(invalid, ", "), sentinel.JoinEventKinds(sentinel.AllEventKinds()))
}

func (e *Executor) addSubscription(ctx context.Context, cmd *Command) string {
	if cmd.Owner == "" || cmd.Repo == "" || len(cmd.Events) == 0 {
		return "error: add requires an owner, a repository, and at least one event (--events)"
	}

	kinds, invalid := validateEvents(cmd.Events)
	if len(invalid) > 0 {
		return invalidEventsMessage(invalid)
	}

	if err := e.store.Add(ctx, cmd.Owner, cmd.Repo, kinds); err != nil {
		if errors.Is(err, storage.ErrAlreadySubscribed) {
			return fmt.Sprintf("already subscribed to %s/%s", cmd.Owner, cmd.Repo)
		}
		e.logger.Error("Add subscription failed", "repo", cmd.Owner+"/"+cmd.Repo, "error", err)
		return fmt.Sprintf("error: could not add %s/%s: %v", cmd.Owner, cmd.Repo, err)
	}

	return fmt.Sprintf("subscribed to %s/%s (events: %s)", cmd.Owner, cmd.Repo, sentinel.JoinEventKinds(kinds))
}

func (e *Executor) removeSubscription(ctx context.Context, cmd *Command) string {
	if cmd.Owner == "" || cmd.Repo == "" {
		return "error: remove requires an owner and a repository"
	}

	if err := e.store.Remove(ctx, cmd.Owner, cmd.Repo); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Sprintf("no subscription found for %s/%s", cmd.Owner, cmd.Repo)
		}
		e.logger.Error("Remove subscription failed", "repo", cmd.Owner+"/"+cmd.Repo, "error", err)
		return fmt.Sprintf("error: could not remove %s/%s: %v", cmd.Owner, cmd.Repo, err)
	}

	return fmt.Sprintf("unsubscribed from %s/%s", cmd.Owner, cmd.Repo)
}

func (e *Executor) updateSubscription(ctx context.Context, cmd *Command) string {
	if cmd.Owner == "" || cmd.Repo == "" || len(cmd.Events) == 0 {
		return "error: update requires an owner, a repository, and at least one event (--events)"
	}

	kinds, invalid := validateEvents(cmd.Events)
	if len(invalid) > 0 {
		return invalidEventsMessage(invalid)
	}

	if err := e.store.Update(ctx, cmd.Owner, cmd.Repo, kinds); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Sprintf("no subscription found for %s/%s", cmd.Owner, cmd.Repo)
		}
		e.logger.Error("Update subscription failed", "repo", cmd.Owner+"/"+cmd.Repo, "error", err)
		return fmt.Sprintf("error: could not update %s/%s: %v", cmd.Owner, cmd.Repo, err)
	}

	return fmt.Sprintf("updated %s/%s (events: %s)", cmd.Owner, cmd.Repo, sentinel.JoinEventKinds(kinds))
}

func (e *Executor) listSubscriptions() string {
	subs := e.store.List()
	if len(subs) == 0 {
		return "no subscriptions yet, add one with: add <owner> <repo> --events <event> [event ...]"
	}

	var b strings.Builder
	b.WriteString("subscribed repositories:\n")
	for i, sub := range subs {
		fmt.Fprintf(&b, "%d. %s/%s\n", i+1, sub.Owner, sub.Repo)
		fmt.Fprintf(&b, "   events: %s\n", sentinel.JoinEventKinds(sub.Events))
	}
	return strings.TrimRight(b.String(), "\n")
}

// fetchNow runs an immediate check. The report always goes to the console
// channel: the operator asked interactively and is watching the terminal.
func (e *Executor) fetchNow(ctx context.Context) string {
	updated, err := e.fetcher.Run(ctx, sentinel.ChannelConsole)
	if err != nil {
		if errors.Is(err, check.ErrNoSubscriptions) {
			return "no subscriptions, cannot fetch"
		}
		e.logger.Error("Immediate fetch failed", "error", err)
		return fmt.Sprintf("error: fetch failed: %v", err)
	}

	if updated == 0 {
		return "update check completed: 0 repositories updated"
	}
	return fmt.Sprintf("update check completed: %d repositories updated (report above)", updated)
}

const helpText = `GitHub Sentinel interactive commands:
  add <owner> <repo> --events <event> [event ...]
      subscribe to a repository
      example: add octocat hello-world --events commits issues
      events: commits, pull_requests, issues, releases
  update <owner> <repo> --events <event> [event ...]
      replace the watched events of an existing subscription
  remove <owner> <repo>
      unsubscribe from a repository
      example: remove octocat hello-world
  list
      show all subscriptions and their watched events
  fetch
      run an update check right now and print the report
  help
      show this message
  exit
      save state and quit`
