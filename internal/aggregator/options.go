package aggregator

import (
	"time"

	"github.com/civiclens/billhub/internal/civic"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithResolver wires the constituency resolver used by zip and
// representative scoped queries.
func WithResolver(resolver civic.Resolver) Option {
	return func(a *Aggregator) {
		if resolver != nil {
			a.resolver = resolver
		}
	}
}

// WithSourceTimeout bounds each adapter call.
func WithSourceTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.sourceTimeout = timeout
		}
	}
}
