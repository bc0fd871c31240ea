// Package kv defines the key-value store interface used for durable
// quota and cache state, plus its in-memory and Redis implementations.
package kv

import (
	"context"
	"time"
)

// Store provides byte-value storage keyed by string. A zero TTL means the
// key never expires; expiry is only honored where the backend supports it.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backing resources.
	Close() error
}
