// Package command parses operator console input and executes the resulting
// commands against the subscription store and update pipeline.
package command

import (
	"fmt"
	"strings"
)

// Kind identifies an operator command.
type Kind string

const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
	KindUpdate Kind = "update"
	KindList   Kind = "list"
	KindFetch  Kind = "fetch"
	KindHelp   Kind = "help"
	KindExit   Kind = "exit"
)

// Command is one parsed operator command. It is immutable once constructed
// and consumed exactly once by the executor.
type Command struct {
	Kind  Kind
	Owner string
	Repo  string
	// Events holds raw tokens; validation against the closed event-kind
	// set happens in the executor, keeping a single source of truth.
	Events []string
}

// ParseError describes malformed command text. It is surfaced to the
// operator as a result string, never as a fault.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

const (
	addUsage    = "usage: add <owner> <repo> --events <event> [event ...]"
	updateUsage = "usage: update <owner> <repo> --events <event> [event ...]"
	removeUsage = "usage: remove <owner> <repo>"
)

// Parse interprets one line of console text. A blank line yields (nil, nil)
// and must not be queued.
func Parse(line string) (*Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil
	}

	switch strings.ToLower(tokens[0]) {
	case "help":
		return &Command{Kind: KindHelp}, nil
	case "exit", "quit":
		return &Command{Kind: KindExit}, nil
	case "fetch":
		return &Command{Kind: KindFetch}, nil
	case "list":
		return &Command{Kind: KindList}, nil
	case "add":
		return parseWithEvents(KindAdd, tokens, addUsage)
	case "update":
		return parseWithEvents(KindUpdate, tokens, updateUsage)
	case "remove":
		if len(tokens) != 3 {
			return nil, &ParseError{msg: removeUsage}
		}
		return &Command{Kind: KindRemove, Owner: tokens[1], Repo: tokens[2]}, nil
	default:
		return nil, &ParseError{msg: fmt.Sprintf("unknown command %q, type 'help' for available commands", tokens[0])}
	}
}

// parseWithEvents handles the shared shape of add and update:
// <kind> <owner> <repo> --events <event> [event ...]
func parseWithEvents(kind Kind, tokens []string, usage string) (*Command, error) {
	if len(tokens) < 5 {
		return nil, &ParseError{msg: usage}
	}
	if tokens[3] != "--events" {
		return nil, &ParseError{msg: usage}
	}
	return &Command{
		Kind:   kind,
		Owner:  tokens[1],
		Repo:   tokens[2],
		Events: tokens[4:],
	}, nil
}
