package kv

// RedisOption applies a configuration option to the Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix sets the namespace prepended to every key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}
