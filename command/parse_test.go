package command

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Command
		wantErr string // substring of the parse error, empty for success
	}{
		{
			name: "help",
			line: "help",
			want: &Command{Kind: KindHelp},
		},
		{
			name: "exit",
			line: "exit",
			want: &Command{Kind: KindExit},
		},
		{
			name: "quit alias",
			line: "quit",
			want: &Command{Kind: KindExit},
		},
		{
			name: "fetch",
			line: "fetch",
			want: &Command{Kind: KindFetch},
		},
		{
			name: "list",
			line: "list",
			want: &Command{Kind: KindList},
		},
		{
			name: "case insensitive first token",
			line: "LIST",
			want: &Command{Kind: KindList},
		},
		{
			name: "empty line is a no-op",
			line: "",
			want: nil,
		},
		{
			name: "whitespace-only line is a no-op",
			line: "   \t  ",
			want: nil,
		},
		{
			name: "add with one event",
			line: "add octocat hello-world --events commits",
			want: &Command{Kind: KindAdd, Owner: "octocat", Repo: "hello-world", Events: []string{"commits"}},
		},
		{
			name: "add with multiple events",
			line: "add octocat hello-world --events commits issues",
			want: &Command{Kind: KindAdd, Owner: "octocat", Repo: "hello-world", Events: []string{"commits", "issues"}},
		},
		{
			name: "add does not validate event tokens",
			line: "add octocat hello-world --events bogus",
			want: &Command{Kind: KindAdd, Owner: "octocat", Repo: "hello-world", Events: []string{"bogus"}},
		},
		{
			name:    "add missing repo and events",
			line:    "add octocat",
			wantErr: "usage: add",
		},
		{
			name:    "add missing events marker",
			line:    "add octocat hello-world commits issues",
			wantErr: "usage: add",
		},
		{
			name:    "add with marker but no events",
			line:    "add octocat hello-world --events",
			wantErr: "usage: add",
		},
		{
			name: "update",
			line: "update octocat hello-world --events releases",
			want: &Command{Kind: KindUpdate, Owner: "octocat", Repo: "hello-world", Events: []string{"releases"}},
		},
		{
			name:    "update missing events",
			line:    "update octocat hello-world",
			wantErr: "usage: update",
		},
		{
			name: "remove",
			line: "remove octocat hello-world",
			want: &Command{Kind: KindRemove, Owner: "octocat", Repo: "hello-world"},
		},
		{
			name:    "remove with too few tokens",
			line:    "remove octocat",
			wantErr: "usage: remove",
		},
		{
			name:    "remove with too many tokens",
			line:    "remove octocat hello-world extra",
			wantErr: "usage: remove",
		},
		{
			name:    "unknown command suggests help",
			line:    "frobnicate now",
			wantErr: "help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error containing %q", tt.line, got, tt.wantErr)
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("Parse(%q) error type = %T, want *ParseError", tt.line, err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Parse(%q) error = %q, want substring %q", tt.line, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.line, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseUnknownCommandNamesIt(t *testing.T) {
	_, err := Parse("frobnicate")
	if err == nil {
		t.Fatal("expected parse error for unknown command")
	}
	if !strings.Contains(err.Error(), "frobnicate") {
		t.Errorf("error %q should name the unknown command", err)
	}
}
