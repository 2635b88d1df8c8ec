// Package coordinator ties the interactive console to the background
// scheduler and command executor.
//
// Three flows of control run concurrently: the recurring-check scheduler,
// the command-processing loop, and the foreground loop that multiplexes
// operator input with result printing. The two bounded queues between them
// are owned here as instance fields; backpressure on either queue is always
// surfaced to the operator, never silently dropped.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github-sentinel/command"
)

const (
	// queueCapacity bounds both the command and the result queue.
	queueCapacity = 10

	// defaultGrace bounds how long shutdown waits for an in-flight
	// command to deliver its result.
	defaultGrace = 5 * time.Second
)

// Executor runs one parsed command to completion.
type Executor interface {
	Execute(ctx context.Context, cmd *command.Command) command.Result
}

// Scheduler is the recurring-check driver. Start blocks until the context
// is cancelled or Stop is called.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// Coordinator owns the command/result queues and the process lifecycle.
type Coordinator struct {
	exec   Executor
	sched  Scheduler
	lines  <-chan string
	out    io.Writer
	logger *slog.Logger
	grace  time.Duration

	commands chan *command.Command
	results  chan command.Result
}

// New creates a coordinator reading operator input from lines and printing
// results to out.
func New(exec Executor, sched Scheduler, lines <-chan string, out io.Writer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		exec:     exec,
		sched:    sched,
		lines:    lines,
		out:      out,
		logger:   logger,
		grace:    defaultGrace,
		commands: make(chan *command.Command, queueCapacity),
		results:  make(chan command.Result, queueCapacity),
	}
}

// Run drives the whole session and returns once shutdown is complete.
// Shutdown is triggered by an exit command, by the input stream closing,
// or by cancellation of the parent context.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var schedWG sync.WaitGroup
	schedWG.Add(1)
	go func() {
		defer schedWG.Done()
		if err := c.sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("Scheduler exited with error", "error", err)
		}
	}()

	cmdDone := make(chan struct{})
	go c.commandLoop(ctx, cmdDone)

	c.foregroundLoop(ctx, cmdDone)

	// The scheduler does not need to finish its trigger wait; cancel and
	// collect it so its goroutine is not abandoned mid-log.
	cancel()
	c.sched.Stop()
	schedWG.Wait()

	c.logger.Info("Shutdown complete")
	return nil
}

// commandLoop is the single queue consumer: it executes commands in FIFO
// order, so results are delivered in the order commands were dequeued. It
// terminates after handing off the result of an exit command, or when the
// context is cancelled.
func (c *Coordinator) commandLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.commands:
			res := c.exec.Execute(ctx, cmd)
			c.pushResult(ctx, res)
			if res.Exit {
				return
			}
		}
	}
}

// pushResult hands a result to the foreground printer. The fast path is a
// non-blocking send; a full queue is surfaced and retried with a bounded
// wait rather than dropped, and a drop on timeout is logged loudly.
func (c *Coordinator) pushResult(ctx context.Context, res command.Result) {
	select {
	case c.results <- res:
		return
	default:
	}

	c.logger.Warn("Result queue full, retrying delivery", "backlog", len(c.results))
	select {
	case c.results <- res:
	case <-ctx.Done():
		c.logger.Warn("Result dropped during shutdown", "text", res.Text)
	case <-time.After(c.grace):
		c.logger.Error("Result delivery timed out", "text", res.Text)
	}
}

// foregroundLoop multiplexes operator input with result printing. It never
// blocks solely on input: a pending result is printed as soon as it
// arrives, even while the operator is idle.
func (c *Coordinator) foregroundLoop(ctx context.Context, cmdDone <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cmdDone:
			c.drainResults()
			return
		case res := <-c.results:
			c.print(res.Text)
		case line, ok := <-c.lines:
			if !ok {
				// Input stream closed (EOF / Ctrl-C): synthesize an
				// exit so the command loop shuts down cleanly.
				c.logger.Info("Input stream closed, exiting")
				c.enqueueExit(ctx)
				c.awaitShutdown(cmdDone)
				return
			}
			if exit := c.handleLine(ctx, line); exit {
				c.awaitShutdown(cmdDone)
				return
			}
		}
	}
}

// handleLine parses and enqueues one input line. It reports whether an
// exit command was enqueued.
func (c *Coordinator) handleLine(ctx context.Context, line string) bool {
	cmd, err := command.Parse(line)
	if err != nil {
		// Parse errors travel the same delivery path as command results.
		c.deliverLocal(command.Result{Text: err.Error()})
		return false
	}
	if cmd == nil {
		return false
	}

	if cmd.Kind == command.KindExit {
		c.enqueueExit(ctx)
		return true
	}

	select {
	case c.commands <- cmd:
	default:
		c.deliverLocal(command.Result{Text: "command queue full, try again shortly"})
	}
	return false
}

// enqueueExit queues an exit command, waiting out backpressure: unlike
// ordinary commands the operator cannot meaningfully retry a shutdown.
func (c *Coordinator) enqueueExit(ctx context.Context) {
	cmd := &command.Command{Kind: command.KindExit}
	select {
	case c.commands <- cmd:
		return
	default:
		c.print("command queue full, waiting to exit...")
	}

	select {
	case c.commands <- cmd:
	case <-ctx.Done():
	case <-time.After(c.grace):
		c.logger.Error("Could not enqueue exit within grace window")
	}
}

// awaitShutdown keeps draining results until the command loop finishes,
// bounded by the grace window so a wedged command cannot hold the process
// hostage. An in-flight fetch that completes inside the window still gets
// its result printed.
func (c *Coordinator) awaitShutdown(cmdDone <-chan struct{}) {
	deadline := time.After(c.grace)
	for {
		select {
		case res := <-c.results:
			c.print(res.Text)
		case <-cmdDone:
			c.drainResults()
			return
		case <-deadline:
			c.logger.Warn("Command loop did not finish within grace window")
			return
		}
	}
}

// drainResults prints whatever is still buffered, without blocking.
func (c *Coordinator) drainResults() {
	for {
		select {
		case res := <-c.results:
			c.print(res.Text)
		default:
			return
		}
	}
}

// deliverLocal routes a foreground-generated message through the result
// queue when there is room, falling back to printing directly so the
// message is never lost to backpressure.
func (c *Coordinator) deliverLocal(res command.Result) {
	select {
	case c.results <- res:
	default:
		c.print(res.Text)
	}
}

func (c *Coordinator) print(text string) {
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		c.logger.Warn("Failed to write to console", "error", err)
	}
}
