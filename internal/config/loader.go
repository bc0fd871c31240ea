package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/civiclens/billhub/internal/domain/model"
)

// EnvConfigPath names the env var pointing at an optional YAML file.
const EnvConfigPath = "BILLHUB_CONFIG"

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML): explicit path argument, else BILLHUB_CONFIG
//  3. env (prefix BILLHUB_)
func Load(_ context.Context, path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: BILLHUB_ADDR, BILLHUB_STATE_QUOTA, ...
	// Map env keys like BILLHUB_STATE_QUOTA -> state_quota (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("BILLHUB_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "billhub_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy.
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FederalQuota < 1:
		return fmt.Errorf("%w: federal_quota must be positive", ErrInvalidConfig)
	case c.StateQuota < 1:
		return fmt.Errorf("%w: state_quota must be positive", ErrInvalidConfig)
	case c.QuotaPeriodHours < 1:
		return fmt.Errorf("%w: quota_period_hours must be positive", ErrInvalidConfig)
	case c.BreakerThreshold < 1:
		return fmt.Errorf("%w: breaker_threshold must be positive", ErrInvalidConfig)
	case c.CacheTTLMS < 1:
		return fmt.Errorf("%w: cache_ttl_ms must be positive", ErrInvalidConfig)
	case c.RefreshWorkers < 1:
		return fmt.Errorf("%w: refresh_workers must be positive", ErrInvalidConfig)
	}
	for i, feed := range c.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("%w: feed %d: url must not be empty", ErrInvalidConfig, i)
		}
		if _, ok := model.ParseSource(string(feed.Source)); !ok {
			return fmt.Errorf("%w: feed %q: unknown source %q", ErrInvalidConfig, feed.Name, feed.Source)
		}
	}
	return nil
}
