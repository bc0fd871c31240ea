package cache

import (
	"time"

	"github.com/civiclens/billhub/internal/kv"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets the advisory freshness window for new entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRetention sets how long the durable tier keeps stale entries around
// for fallback. It should comfortably exceed the TTL.
func WithRetention(retention time.Duration) Option {
	return func(c *Cache) {
		if retention > 0 {
			c.retention = retention
		}
	}
}

// WithStore enables the durable write-through tier.
func WithStore(store kv.Store) Option {
	return func(c *Cache) {
		c.store = store
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}
