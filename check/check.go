// Package check runs one full update check: list subscriptions, fetch raw
// activity, normalize, filter, and deliver a report.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github-sentinel/gh"
	"github-sentinel/pkg/sentinel"
)

// ErrNoSubscriptions is returned when a check is requested with nothing subscribed.
var ErrNoSubscriptions = errors.New("no subscriptions")

// Source fetches raw activity for one subscription.
type Source interface {
	FetchUpdates(ctx context.Context, sub sentinel.Subscription) gh.RawUpdate
}

// Store lists the current subscriptions.
type Store interface {
	List() []sentinel.Subscription
}

// Processor normalizes and filters raw activity.
type Processor interface {
	ProcessAll(raws []gh.RawUpdate) []sentinel.RepoUpdate
	FilterNonEmpty(updates []sentinel.RepoUpdate) []sentinel.RepoUpdate
}

// Sink delivers a report of the filtered updates.
type Sink interface {
	Deliver(ctx context.Context, updates []sentinel.RepoUpdate, channel sentinel.Channel) error
}

// Checker wires the update pipeline together.
type Checker struct {
	store     Store
	source    Source
	processor Processor
	sink      Sink
	logger    *slog.Logger
}

// New creates a checker.
func New(store Store, source Source, processor Processor, sink Sink, logger *slog.Logger) *Checker {
	return &Checker{
		store:     store,
		source:    source,
		processor: processor,
		sink:      sink,
		logger:    logger,
	}
}

// Run executes one check, delivering through the given channel. It returns
// the number of repositories with updates. With no subscriptions it returns
// ErrNoSubscriptions before contacting the update source. The sink is never
// invoked when nothing changed.
func (c *Checker) Run(ctx context.Context, channel sentinel.Channel) (int, error) {
	subs := c.store.List()
	if len(subs) == 0 {
		return 0, ErrNoSubscriptions
	}

	start := time.Now()
	c.logger.Info("Starting update check", "subscription_count", len(subs), "channel", channel)

	raws := make([]gh.RawUpdate, 0, len(subs))
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping update check", "error", ctx.Err())
			return 0, ctx.Err()
		default:
		}
		raws = append(raws, c.source.FetchUpdates(ctx, sub))
	}

	updates := c.processor.FilterNonEmpty(c.processor.ProcessAll(raws))

	c.logger.Info("Update check completed",
		"checked", len(subs),
		"updated", len(updates),
		"duration_ms", time.Since(start).Milliseconds())

	if len(updates) == 0 {
		return 0, nil
	}

	if err := c.sink.Deliver(ctx, updates, channel); err != nil {
		return len(updates), fmt.Errorf("deliver report: %w", err)
	}
	return len(updates), nil
}
