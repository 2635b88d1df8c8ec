// Package console turns interactive terminal input into a stream of lines
// for the coordinator, with readline-style editing and completion.
package console

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/peterh/liner"
)

const prompt = "sentinel> "

// commandNames feeds tab completion. Kept local: completion is a console
// affordance, not part of the command grammar.
var commandNames = []string{"add", "remove", "update", "list", "fetch", "help", "exit"}

// Reader reads operator input line by line.
type Reader struct {
	state  *liner.State
	lines  chan string
	logger *slog.Logger
}

// New sets up the terminal for interactive input. Call Close before the
// process exits to restore the terminal state.
func New(logger *slog.Logger) *Reader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var out []string
		for _, name := range commandNames {
			if strings.HasPrefix(name, strings.ToLower(line)) {
				out = append(out, name)
			}
		}
		return out
	})

	return &Reader{
		state:  state,
		lines:  make(chan string),
		logger: logger,
	}
}

// Lines is the stream of input lines. It is closed on EOF or Ctrl-C, which
// the coordinator treats as an exit request.
func (r *Reader) Lines() <-chan string {
	return r.lines
}

// Run blocks prompting for input until the stream ends. Run it on its own
// goroutine; the blocking prompt is why the coordinator consumes a channel
// instead of polling the terminal itself.
func (r *Reader) Run() {
	defer close(r.lines)

	for {
		line, err := r.state.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return
			}
			r.logger.Error("Reading input failed", "error", err)
			return
		}

		line = strings.TrimSpace(line)
		if line != "" {
			r.state.AppendHistory(line)
		}
		r.lines <- line
	}
}

// Close restores the terminal state.
func (r *Reader) Close() {
	if err := r.state.Close(); err != nil {
		r.logger.Warn("Failed to restore terminal state", "error", err)
	}
}
