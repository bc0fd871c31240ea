package breaker

import "time"

// Option applies a configuration option to the Breaker.
type Option func(*Breaker)

// WithThreshold sets the consecutive-failure count that opens the breaker.
func WithThreshold(threshold int) Option {
	return func(b *Breaker) {
		if threshold > 0 {
			b.thresh = threshold
		}
	}
}

// WithWindow sets the sliding window a failure run must fit inside.
func WithWindow(window time.Duration) Option {
	return func(b *Breaker) {
		if window > 0 {
			b.window = window
		}
	}
}

// WithCooldown sets how long the breaker stays Open before admitting a trial.
func WithCooldown(cooldown time.Duration) Option {
	return func(b *Breaker) {
		if cooldown > 0 {
			b.cooldown = cooldown
		}
	}
}

// WithClassifier sets the failure classifier.
func WithClassifier(classify Classifier) Option {
	return func(b *Breaker) {
		if classify != nil {
			b.classify = classify
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}
