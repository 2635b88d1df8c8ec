// Package storage persists the subscription list.
//
// The whole list lives in a single document that is rewritten on every
// mutation: a local JSON file in development, or a Cloud Storage object when
// a bucket is configured. All access goes through a mutex so the scheduled
// check and interactive commands cannot lose updates to each other.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"github.com/natefinch/atomic"

	"github-sentinel/pkg/sentinel"
)

// stateObject is the document name holding the subscription list, in both
// the local directory and the bucket.
const stateObject = "subscriptions.json"

var (
	// ErrAlreadySubscribed is returned by Add for a duplicate (owner, repo).
	ErrAlreadySubscribed = errors.New("repository already subscribed")

	// ErrNotFound is returned by Remove and Update when no subscription
	// matches the (owner, repo) key.
	ErrNotFound = errors.New("subscription not found")
)

// Store manages subscriptions with full-rewrite persistence.
type Store struct {
	mu        sync.Mutex
	subs      []sentinel.Subscription
	client    *storage.Client
	bucket    string
	localPath string
	logger    *slog.Logger
}

// New creates a store backed by the bucket when one is given, otherwise by
// localPath, and loads any existing state.
func New(ctx context.Context, client *storage.Client, bucket, localPath string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		client:    client,
		bucket:    bucket,
		localPath: localPath,
		logger:    logger,
	}
	if bucket == "" {
		if err := os.MkdirAll(localPath, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	logger.Info("Subscription store ready",
		"backend", s.backend(),
		"subscription_count", len(s.subs))
	return s, nil
}

func (s *Store) backend() string {
	if s.bucket != "" {
		return "gcs:" + s.bucket
	}
	return "local:" + s.localPath
}

// List returns a copy of all subscriptions in stable insertion order.
func (s *Store) List() []sentinel.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentinel.Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Add appends a new subscription, rejecting duplicates by (owner, repo).
func (s *Store) Add(ctx context.Context, owner, repo string, events []sentinel.EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := sentinel.Subscription{Owner: owner, Repo: repo, Events: events}
	if s.indexOf(sub.Key()) >= 0 {
		return ErrAlreadySubscribed
	}

	s.subs = append(s.subs, sub)
	if err := s.persist(ctx); err != nil {
		// Roll back the in-memory append so state matches the backing store.
		s.subs = s.subs[:len(s.subs)-1]
		return err
	}

	s.logger.Info("Subscription added", "repo", sub.Key(), "events", sentinel.JoinEventKinds(events))
	return nil
}

// Remove deletes the subscription for (owner, repo).
func (s *Store) Remove(ctx context.Context, owner, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sentinel.Subscription{Owner: owner, Repo: repo}.Key()
	i := s.indexOf(key)
	if i < 0 {
		return ErrNotFound
	}

	removed := s.subs[i]
	s.subs = append(s.subs[:i], s.subs[i+1:]...)
	if err := s.persist(ctx); err != nil {
		s.subs = append(s.subs[:i], append([]sentinel.Subscription{removed}, s.subs[i:]...)...)
		return err
	}

	s.logger.Info("Subscription removed", "repo", key)
	return nil
}

// Update replaces the watched-event set of an existing subscription.
func (s *Store) Update(ctx context.Context, owner, repo string, events []sentinel.EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sentinel.Subscription{Owner: owner, Repo: repo}.Key()
	i := s.indexOf(key)
	if i < 0 {
		return ErrNotFound
	}

	previous := s.subs[i].Events
	s.subs[i].Events = events
	if err := s.persist(ctx); err != nil {
		s.subs[i].Events = previous
		return err
	}

	s.logger.Info("Subscription updated", "repo", key, "events", sentinel.JoinEventKinds(events))
	return nil
}

// indexOf finds a subscription by key. Caller holds the mutex.
func (s *Store) indexOf(key string) int {
	for i, sub := range s.subs {
		if sub.Key() == key {
			return i
		}
	}
	return -1
}

// load reads the state document, treating a missing one as an empty list.
func (s *Store) load(ctx context.Context) error {
	var data []byte

	if s.bucket == "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, stateObject))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read local state: %w", err)
		}
	} else {
		r, err := s.client.Bucket(s.bucket).Object(stateObject).NewReader(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("open storage reader: %w", err)
		}
		defer func() {
			if closeErr := r.Close(); closeErr != nil {
				s.logger.Warn("Failed to close storage reader", "error", closeErr)
			}
		}()

		data, err = io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read from storage: %w", err)
		}
	}

	if err := json.Unmarshal(data, &s.subs); err != nil {
		return fmt.Errorf("unmarshal subscriptions: %w", err)
	}
	return nil
}

// persist rewrites the full state document. Caller holds the mutex.
func (s *Store) persist(ctx context.Context) error {
	data, err := json.MarshalIndent(s.subs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subscriptions: %w", err)
	}

	// Local filesystem storage
	if s.bucket == "" {
		path := filepath.Join(s.localPath, stateObject)
		if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
			return fmt.Errorf("write local state: %w", err)
		}
		s.logger.Debug("Subscriptions saved", "path", path, "count", len(s.subs))
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(stateObject).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("Retrying state write after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("persist subscriptions: %w", err)
	}

	s.logger.Debug("Subscriptions saved", "bucket", s.bucket, "count", len(s.subs))
	return nil
}
