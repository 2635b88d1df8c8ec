package command

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github-sentinel/check"
	"github-sentinel/pkg/sentinel"
	"github-sentinel/storage"
)

type fakeStore struct {
	subs      []sentinel.Subscription
	addErr    error
	removeErr error
	updateErr error

	addCalls    int
	removeCalls int
	updateCalls int
}

func (f *fakeStore) List() []sentinel.Subscription { return f.subs }

func (f *fakeStore) Add(_ context.Context, owner, repo string, events []sentinel.EventKind) error {
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	f.subs = append(f.subs, sentinel.Subscription{Owner: owner, Repo: repo, Events: events})
	return nil
}

func (f *fakeStore) Remove(_ context.Context, _, _ string) error {
	f.removeCalls++
	return f.removeErr
}

func (f *fakeStore) Update(_ context.Context, _, _ string, _ []sentinel.EventKind) error {
	f.updateCalls++
	return f.updateErr
}

type fakeFetcher struct {
	updated int
	err     error
	calls   int
}

func (f *fakeFetcher) Run(_ context.Context, _ sentinel.Channel) (int, error) {
	f.calls++
	return f.updated, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecuteAdd(t *testing.T) {
	store := &fakeStore{}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{
		Kind: KindAdd, Owner: "octocat", Repo: "hello-world",
		Events: []string{"commits", "issues"},
	})

	if res.Exit {
		t.Error("add must not request exit")
	}
	if want := "subscribed to octocat/hello-world (events: commits, issues)"; res.Text != want {
		t.Errorf("result = %q, want %q", res.Text, want)
	}
	if store.addCalls != 1 {
		t.Errorf("store.Add called %d times, want 1", store.addCalls)
	}
}

func TestExecuteAddDuplicate(t *testing.T) {
	store := &fakeStore{addErr: storage.ErrAlreadySubscribed}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{
		Kind: KindAdd, Owner: "octocat", Repo: "hello-world", Events: []string{"commits"},
	})

	if want := "already subscribed to octocat/hello-world"; res.Text != want {
		t.Errorf("result = %q, want %q", res.Text, want)
	}
}

func TestExecuteAddInvalidEvents(t *testing.T) {
	store := &fakeStore{}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{
		Kind: KindAdd, Owner: "octocat", Repo: "hello-world",
		Events: []string{"commits", "stars", "forks"},
	})

	if store.addCalls != 0 {
		t.Error("store must not be touched when event validation fails")
	}
	for _, token := range []string{"stars", "forks"} {
		if !strings.Contains(res.Text, token) {
			t.Errorf("result %q should name invalid token %q", res.Text, token)
		}
	}
	if !strings.Contains(res.Text, "releases") {
		t.Errorf("result %q should list the supported event kinds", res.Text)
	}
}

func TestExecuteRemoveNotFound(t *testing.T) {
	store := &fakeStore{removeErr: storage.ErrNotFound}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{
		Kind: KindRemove, Owner: "octocat", Repo: "nope",
	})

	if want := "no subscription found for octocat/nope"; res.Text != want {
		t.Errorf("result = %q, want %q", res.Text, want)
	}
}

func TestExecuteUpdateNotFound(t *testing.T) {
	store := &fakeStore{updateErr: storage.ErrNotFound}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{
		Kind: KindUpdate, Owner: "octocat", Repo: "nope", Events: []string{"issues"},
	})

	if want := "no subscription found for octocat/nope"; res.Text != want {
		t.Errorf("result = %q, want %q", res.Text, want)
	}
}

func TestExecuteListEmpty(t *testing.T) {
	exec := NewExecutor(&fakeStore{}, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{Kind: KindList})
	if !strings.Contains(res.Text, "no subscriptions yet") {
		t.Errorf("result = %q, want empty-store message", res.Text)
	}
}

func TestExecuteListFormatsSubscriptions(t *testing.T) {
	store := &fakeStore{subs: []sentinel.Subscription{
		{Owner: "octocat", Repo: "hello-world", Events: []sentinel.EventKind{sentinel.EventCommits, sentinel.EventIssues}},
		{Owner: "golang", Repo: "go", Events: []sentinel.EventKind{sentinel.EventReleases}},
	}}
	exec := NewExecutor(store, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{Kind: KindList})

	for _, want := range []string{
		"1. octocat/hello-world",
		"events: commits, issues",
		"2. golang/go",
		"events: releases",
	} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("list output missing %q:\n%s", want, res.Text)
		}
	}
}

func TestExecuteFetch(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *fakeFetcher
		want    string
	}{
		{
			name:    "updates found",
			fetcher: &fakeFetcher{updated: 3},
			want:    "update check completed: 3 repositories updated (report above)",
		},
		{
			name:    "no updates",
			fetcher: &fakeFetcher{updated: 0},
			want:    "update check completed: 0 repositories updated",
		},
		{
			name:    "empty store",
			fetcher: &fakeFetcher{err: check.ErrNoSubscriptions},
			want:    "no subscriptions, cannot fetch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(&fakeStore{}, tt.fetcher, discardLogger())
			res := exec.Execute(context.Background(), &Command{Kind: KindFetch})
			if res.Text != tt.want {
				t.Errorf("result = %q, want %q", res.Text, tt.want)
			}
			if tt.fetcher.calls != 1 {
				t.Errorf("fetcher called %d times, want 1", tt.fetcher.calls)
			}
		})
	}
}

func TestExecuteExit(t *testing.T) {
	exec := NewExecutor(&fakeStore{}, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{Kind: KindExit})
	if !res.Exit {
		t.Error("exit command must set Exit on the result")
	}
}

func TestExecuteHelpMentionsEveryCommand(t *testing.T) {
	exec := NewExecutor(&fakeStore{}, &fakeFetcher{}, discardLogger())

	res := exec.Execute(context.Background(), &Command{Kind: KindHelp})
	for _, name := range []string{"add", "update", "remove", "list", "fetch", "help", "exit"} {
		if !strings.Contains(res.Text, name) {
			t.Errorf("help text missing command %q", name)
		}
	}
}
