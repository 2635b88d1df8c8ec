// Package config loads and validates the sentinel configuration file.
//
// The file is JSONC (JSON with comments and trailing commas) so operators can
// annotate their subscriptions; it is normalized with hujson before decoding.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github-sentinel/pkg/sentinel"
)

// EmailConfig holds settings for the email notification channel.
type EmailConfig struct {
	Provider   string `json:"provider"` // "gmail", "smtp", or "mock"
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	SMTPServer string `json:"smtp_server,omitempty"`
	SMTPPort   int    `json:"smtp_port,omitempty"`
	SMTPUser   string `json:"smtp_user,omitempty"`
	// SMTPPassword is read from SENTINEL_SMTP_PASSWORD when empty.
	SMTPPassword string `json:"smtp_password,omitempty"`
}

// WebhookConfig holds settings for the webhook notification channel.
type WebhookConfig struct {
	URL string `json:"url"`
}

// NotificationConfig selects and configures the delivery channel.
type NotificationConfig struct {
	Type    sentinel.Channel `json:"type"`
	Email   EmailConfig      `json:"email,omitempty"`
	Webhook WebhookConfig    `json:"webhook,omitempty"`
}

// Config is the full sentinel configuration.
type Config struct {
	// GitHubToken authenticates API calls. Overridden by GITHUB_TOKEN.
	GitHubToken string `json:"github_token"`

	// DataDir is where the subscription state file lives. Ignored when
	// StorageBucket is set.
	DataDir string `json:"data_dir,omitempty"`

	// StorageBucket selects Cloud Storage persistence instead of the
	// local filesystem.
	StorageBucket string `json:"storage_bucket,omitempty"`

	CheckFrequency sentinel.Frequency `json:"check_frequency"`
	Notification   NotificationConfig `json:"notification"`
	LogLevel       string             `json:"log_level,omitempty"` // debug, info, warn, error
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		DataDir:        "./data",
		CheckFrequency: sentinel.Daily,
		Notification: NotificationConfig{
			Type:  sentinel.ChannelConsole,
			Email: EmailConfig{Provider: "mock"},
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the config location used when none is given:
// $XDG_CONFIG_HOME/github-sentinel/config.json, falling back to
// ~/.config/github-sentinel/config.json.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "github-sentinel", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".config", "github-sentinel", "config.json")
}

// defaultFileBody is what gets written on bootstrap. Comments survive because
// the loader accepts JSONC.
const defaultFileBody = `{
  // GitHub personal access token. GITHUB_TOKEN env var takes precedence.
  "github_token": "",

  // Where subscription state is stored. Set "storage_bucket" instead to
  // persist in a Cloud Storage bucket.
  "data_dir": "./data",

  // "daily" checks the last 24 hours at 09:00 UTC, "weekly" the last 7 days
  // on Monday at 09:00 UTC.
  "check_frequency": "daily",

  "notification": {
    // "console", "email", or "webhook"
    "type": "console",
    "email": {
      "provider": "mock", // "gmail", "smtp", or "mock"
      "sender": "",
      "recipient": "",
      "smtp_server": "",
      "smtp_port": 587,
      "smtp_user": ""
    },
    "webhook": {
      "url": ""
    }
  },

  "log_level": "info"
}
`

// ErrCreatedDefault signals that no config existed and a commented default
// was written; the operator must fill it in before the next run.
var ErrCreatedDefault = errors.New("default config created")

// Load reads, normalizes, and validates the config file at path. When the
// file does not exist a commented default is written and ErrCreatedDefault
// returned.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
			return Config{}, fmt.Errorf("create config directory: %w", mkErr)
		}
		if wrErr := atomic.WriteFile(path, strings.NewReader(defaultFileBody)); wrErr != nil {
			return Config{}, fmt.Errorf("write default config: %w", wrErr)
		}
		return Config{}, fmt.Errorf("%w at %s: set github_token and re-run", ErrCreatedDefault, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates raw JSONC config bytes.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Environment overrides for secrets.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	}
	if pw := os.Getenv("SENTINEL_SMTP_PASSWORD"); pw != "" {
		cfg.Notification.Email.SMTPPassword = pw
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the closed-set fields and channel-specific requirements.
func (c Config) Validate() error {
	switch c.CheckFrequency {
	case sentinel.Daily, sentinel.Weekly:
	default:
		return fmt.Errorf("check_frequency must be %q or %q, got %q", sentinel.Daily, sentinel.Weekly, c.CheckFrequency)
	}

	switch c.Notification.Type {
	case sentinel.ChannelConsole, sentinel.ChannelEmail, sentinel.ChannelWebhook:
	default:
		return fmt.Errorf("notification.type must be console, email, or webhook, got %q", c.Notification.Type)
	}

	if c.Notification.Type == sentinel.ChannelEmail {
		e := c.Notification.Email
		switch e.Provider {
		case "gmail", "mock":
		case "smtp":
			if e.SMTPServer == "" || e.SMTPPort == 0 || e.SMTPUser == "" {
				return fmt.Errorf("smtp provider requires smtp_server, smtp_port, and smtp_user")
			}
		default:
			return fmt.Errorf("email.provider must be gmail, smtp, or mock, got %q", e.Provider)
		}
		if e.Recipient == "" {
			return fmt.Errorf("email channel requires notification.email.recipient")
		}
	}

	if c.Notification.Type == sentinel.ChannelWebhook && c.Notification.Webhook.URL == "" {
		return fmt.Errorf("webhook channel requires notification.webhook.url")
	}

	if c.DataDir == "" && c.StorageBucket == "" {
		return fmt.Errorf("either data_dir or storage_bucket must be set")
	}

	return nil
}

