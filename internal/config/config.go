// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars
//   (BILLHUB_ prefix) on top.
// - Duration-ish knobs are flat integers (_ms, _hours) so they stay
//   overridable from the environment.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"

	"github.com/civiclens/billhub/internal/civic"
	"github.com/civiclens/billhub/internal/feedwatch"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RequestTimeoutMS bounds one inbound request end to end.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// SourceTimeoutMS bounds each upstream adapter call.
	SourceTimeoutMS int `koanf:"source_timeout_ms"`

	// RedisAddr enables the durable kv tier when non-empty; quota state and
	// cache entries then survive restarts. Empty means in-memory only.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Federal provider credentials and call budget.
	FederalAPIKey  string `koanf:"federal_api_key"`
	FederalBaseURL string `koanf:"federal_base_url"`
	FederalQuota   int    `koanf:"federal_quota"`

	// State provider credentials, legislature scope and call budget. The
	// state API meters hard per-month; keep the quota conservative.
	StateAPIKey  string `koanf:"state_api_key"`
	StateBaseURL string `koanf:"state_base_url"`
	StateCode    string `koanf:"state_code"`
	StateQuota   int    `koanf:"state_quota"`

	// QuotaPeriodHours is the billing period length for both providers.
	QuotaPeriodHours int `koanf:"quota_period_hours"`

	// Breaker tuning shared by all sources.
	BreakerThreshold  int `koanf:"breaker_threshold"`
	BreakerWindowMS   int `koanf:"breaker_window_ms"`
	BreakerCooldownMS int `koanf:"breaker_cooldown_ms"`

	// Response cache freshness and durable-tier retention.
	CacheTTLMS          int `koanf:"cache_ttl_ms"`
	CacheRetentionHours int `koanf:"cache_retention_hours"`

	// Background revalidation pool.
	RefreshWorkers   int `koanf:"refresh_workers"`
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// Provider action feeds for proactive revalidation. Empty disables the
	// watcher.
	Feeds              []feedwatch.Feed `koanf:"feeds"`
	FeedPollIntervalMS int              `koanf:"feed_poll_interval_ms"`
	FeedMinAgeMS       int              `koanf:"feed_min_age_ms"`

	// Representative roster seeding the static constituency resolver.
	Representatives []civic.Representative `koanf:"representatives"`
	CivicMaxScope   int                    `koanf:"civic_max_scope"`

	// Inbound per-client rate limit (token bucket).
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		RequestTimeoutMS:    15_000,
		SourceTimeoutMS:     8_000,
		FederalQuota:        5_000,
		StateCode:           "CA",
		StateQuota:          500,
		QuotaPeriodHours:    720,
		BreakerThreshold:    5,
		BreakerWindowMS:     60_000,
		BreakerCooldownMS:   30_000,
		CacheTTLMS:          300_000,
		CacheRetentionHours: 24,
		RefreshWorkers:      4,
		RefreshQueueSize:    256,
		FeedPollIntervalMS:  300_000,
		FeedMinAgeMS:        30_000,
		CivicMaxScope:       25,
		RateLimitRPS:        10,
		RateLimitBurst:      20,
	}
}

// RequestTimeout returns the inbound request deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// SourceTimeout returns the per-adapter call deadline.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutMS) * time.Millisecond
}

// QuotaPeriod returns the billing period length.
func (c *Config) QuotaPeriod() time.Duration {
	return time.Duration(c.QuotaPeriodHours) * time.Hour
}

// BreakerWindow returns the failure-run sliding window.
func (c *Config) BreakerWindow() time.Duration {
	return time.Duration(c.BreakerWindowMS) * time.Millisecond
}

// BreakerCooldown returns the open-state cooldown.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownMS) * time.Millisecond
}

// CacheTTL returns the response-cache freshness window.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// CacheRetention returns the durable-tier retention bound.
func (c *Config) CacheRetention() time.Duration {
	return time.Duration(c.CacheRetentionHours) * time.Hour
}

// FeedPollInterval returns the action-feed polling cadence.
func (c *Config) FeedPollInterval() time.Duration {
	return time.Duration(c.FeedPollIntervalMS) * time.Millisecond
}

// FeedMinAge returns the minimum entry age for feed-triggered refresh.
func (c *Config) FeedMinAge() time.Duration {
	return time.Duration(c.FeedMinAgeMS) * time.Millisecond
}
