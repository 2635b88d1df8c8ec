// Package main implements GitHub Sentinel, a console application that tracks
// commits, pull requests, issues, and releases across subscribed GitHub
// repositories on a daily or weekly schedule and reports updates through
// console, email, or webhook channels.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	gcs "cloud.google.com/go/storage"
	"github.com/spf13/pflag"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github-sentinel/check"
	"github-sentinel/command"
	"github-sentinel/config"
	"github-sentinel/console"
	"github-sentinel/coordinator"
	"github-sentinel/email"
	"github-sentinel/gh"
	"github-sentinel/notify"
	"github-sentinel/pkg/sentinel"
	"github-sentinel/process"
	"github-sentinel/report"
	"github-sentinel/schedule"
	"github-sentinel/storage"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the config file (default: "+config.DefaultPath()+")")
	pflag.Parse()

	// Bootstrap logger; rebuilt once the configured level is known.
	logger := newLogger("info")
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrCreatedDefault) {
			logger.Info("No config found, default created", "path", path)
			fmt.Fprintln(os.Stderr, err.Error())
			return
		}
		logger.Error("Failed to load config", "path", path, "error", err)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Sentinel failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var gcsClient *gcs.Client
	if cfg.StorageBucket != "" {
		var err error
		gcsClient, err = gcs.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("initialize storage client: %w", err)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
	}

	store, err := storage.New(ctx, gcsClient, cfg.StorageBucket, cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("initialize subscription store: %w", err)
	}

	if cfg.GitHubToken == "" {
		logger.Warn("No GitHub token configured, API calls are unauthenticated and tightly rate-limited")
	}
	source := gh.New(cfg.GitHubToken, cfg.CheckFrequency, logger)

	emailer, err := buildEmailer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	renderer := report.New(cfg.CheckFrequency)
	notifier := notify.New(renderer, emailer, cfg.Notification.Webhook.URL, cfg.CheckFrequency, os.Stdout, logger)
	checker := check.New(store, source, process.New(), notifier, logger)
	executor := command.NewExecutor(store, checker, logger)

	task := func(ctx context.Context) error {
		_, err := checker.Run(ctx, cfg.Notification.Type)
		if errors.Is(err, check.ErrNoSubscriptions) {
			logger.Info("No subscriptions, skipping scheduled check")
			return nil
		}
		return err
	}
	sched := schedule.New(cfg.CheckFrequency, task, logger)

	reader := console.New(logger)
	defer reader.Close()
	go reader.Run()

	fmt.Printf("GitHub Sentinel: tracking %d repositories (%s checks)\n", len(store.List()), cfg.CheckFrequency)
	fmt.Println("Type 'help' for available commands.")

	return coordinator.New(executor, sched, reader.Lines(), os.Stdout, logger).Run(ctx)
}

// buildEmailer selects the configured email provider. It returns nil when
// the email channel is not in use.
func buildEmailer(ctx context.Context, cfg config.Config, logger *slog.Logger) (notify.Emailer, error) {
	if cfg.Notification.Type != sentinel.ChannelEmail {
		return nil, nil
	}

	e := cfg.Notification.Email
	var provider email.Provider
	switch e.Provider {
	case "gmail":
		service, err := initGmailService(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize gmail service: %w", err)
		}
		provider = email.NewGmailProvider(service, logger)
	case "smtp":
		provider = email.NewSMTPProvider(e.SMTPServer, e.SMTPPort, e.SMTPUser, e.SMTPPassword, e.Sender, logger)
	default:
		logger.Info("Mock email mode enabled")
		provider = email.NewMockProvider(logger)
	}

	return email.New(provider, e.Recipient, logger), nil
}

// initGmailService authenticates with explicit credentials when provided,
// falling back to Application Default Credentials.
func initGmailService(ctx context.Context) (*gmail.Service, error) {
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS_JSON"); credsJSON != "" {
		return gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	return gmail.NewService(ctx)
}
