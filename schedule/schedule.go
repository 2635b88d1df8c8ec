// Package schedule runs a task immediately and then on a recurring
// daily or weekly trigger.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github-sentinel/pkg/sentinel"
)

// triggerHour is the UTC hour at which scheduled checks fire.
const triggerHour = 9

// Clock abstracts time so trigger arithmetic is testable without
// wall-clock sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Task is the work run at each trigger. Errors are logged, never fatal.
type Task func(ctx context.Context) error

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// ErrNotIdle is returned by Start on a scheduler that already ran.
var ErrNotIdle = errors.New("scheduler already started")

// Scheduler fires a task on a fixed cadence: daily at 09:00 UTC, or weekly
// on Monday at 09:00 UTC. Runs never overlap; the single loop goroutine
// executes them sequentially.
type Scheduler struct {
	freq   sentinel.Frequency
	task   Task
	clock  Clock
	logger *slog.Logger

	mu    sync.Mutex
	state state
	stop  chan struct{}
}

// New creates a scheduler using the system clock.
func New(freq sentinel.Frequency, task Task, logger *slog.Logger) *Scheduler {
	return NewWithClock(freq, task, realClock{}, logger)
}

// NewWithClock creates a scheduler with an injected clock.
func NewWithClock(freq sentinel.Frequency, task Task, clock Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		freq:   freq,
		task:   task,
		clock:  clock,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Start runs the task once immediately, then blocks dispatching triggers
// until the context is cancelled or Stop is called. A scheduler cannot be
// restarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.state = stateRunning
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = stateStopped
		s.mu.Unlock()
	}()

	s.logger.Info("Scheduler started", "frequency", s.freq)
	s.runTask(ctx)

	for {
		now := s.clock.Now()
		next := NextTrigger(now, s.freq)
		s.logger.Info("Next scheduled check", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-s.stop:
			s.logger.Info("Scheduler stopped")
			return nil
		case <-s.clock.After(next.Sub(now)):
			s.runTask(ctx)
		}
	}
}

// Stop causes a blocked Start to return. Safe to call at most once per
// scheduler; calls on a never-started or already-stopped scheduler are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRunning {
		return
	}
	s.state = stateStopped
	close(s.stop)
}

// runTask isolates one run: an error or panic is logged and the loop
// continues, so one failed run never prevents the next.
func (s *Scheduler) runTask(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled check panicked", "panic", r)
		}
	}()

	start := s.clock.Now()
	if err := s.task(ctx); err != nil {
		s.logger.Error("Scheduled check failed", "error", err, "duration_ms", s.clock.Now().Sub(start).Milliseconds())
		return
	}
	s.logger.Info("Scheduled check finished", "duration_ms", s.clock.Now().Sub(start).Milliseconds())
}

// NextTrigger returns the first trigger time strictly after now: the next
// 09:00 UTC for daily, the next Monday 09:00 UTC for weekly.
func NextTrigger(now time.Time, freq sentinel.Frequency) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), triggerHour, 0, 0, 0, time.UTC)

	if freq == sentinel.Weekly {
		// Walk forward to Monday, then skip a week if that slot already passed.
		for next.Weekday() != time.Monday {
			next = next.AddDate(0, 0, 1)
		}
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	}

	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
