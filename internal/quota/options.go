package quota

import (
	"time"

	"github.com/civiclens/billhub/internal/kv"
)

// Option applies a configuration option to the Limiter.
type Option func(*Limiter)

// WithPeriod sets the quota period length.
func WithPeriod(period time.Duration) Option {
	return func(l *Limiter) {
		if period > 0 {
			l.period = period
		}
	}
}

// WithStore enables best-effort durability for consumption state.
func WithStore(store kv.Store) Option {
	return func(l *Limiter) {
		l.store = store
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}
