package feedwatch

import "time"

// Option applies a configuration option to the Watcher.
type Option func(*Watcher)

// WithInterval sets the polling cadence.
func WithInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithMinAge sets how old a cached entry must be before feed activity may
// refresh it.
func WithMinAge(minAge time.Duration) Option {
	return func(w *Watcher) {
		if minAge >= 0 {
			w.minAge = minAge
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}
