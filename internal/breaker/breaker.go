// Package breaker implements the per-source circuit breaker state machine:
// Closed until consecutive failures reach a threshold, Open until a cooldown
// elapses, then Half-Open admitting exactly one trial call.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Default thresholds.
const (
	DefaultThreshold = 5
	DefaultWindow    = time.Minute
	DefaultCooldown  = 30 * time.Second
)

// State of the breaker.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Classifier decides whether an error counts against the breaker. Client
// faults (bad queries) must return false; upstream faults return true.
type Classifier func(error) bool

// Health is the observable per-source health state.
type Health struct {
	Source              model.SourceID `json:"source"`
	State               string         `json:"state"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastFailureAt       time.Time      `json:"last_failure_at,omitempty"`
	LastSuccessAt       time.Time      `json:"last_success_at,omitempty"`
	RetryAt             time.Time      `json:"retry_at,omitempty"` // earliest trial admission while open
}

// Breaker guards calls to one upstream source.
type Breaker struct {
	mu       sync.Mutex
	source   model.SourceID
	thresh   int
	window   time.Duration
	cooldown time.Duration
	classify Classifier
	now      func() time.Time

	open          bool
	openedAt      time.Time
	trialInFlight bool
	failures      int       // consecutive countable failures
	runStart      time.Time // first failure of the current run
	lastFailureAt time.Time
	lastSuccessAt time.Time
}

// New creates a Closed breaker for source.
func New(source model.SourceID, opts ...Option) *Breaker {
	b := &Breaker{
		source:   source,
		thresh:   DefaultThreshold,
		window:   DefaultWindow,
		cooldown: DefaultCooldown,
		classify: func(err error) bool { return err != nil },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.UpdateBreakerState(string(source), metrics.BreakerStateClosed)
	return b
}

// Do runs fn through the breaker. When the breaker refuses the call, fn is
// never invoked and an *OpenError (matching ErrOpen) returns; otherwise fn's
// error passes through unchanged after being recorded.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	trial, err := b.admit()
	if err != nil {
		metrics.RecordBreakerRejection(string(b.source))
		return err
	}

	callErr := fn(ctx)
	b.record(trial, callErr)
	return callErr
}

// State reports the effective state. The Open to Half-Open transition is
// timeout-driven, so it is computed here rather than stored.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.effective(b.now())
}

// Health snapshots the source health for reporting.
func (b *Breaker) Health() Health {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := Health{
		Source:              b.source,
		State:               b.effective(b.now()).String(),
		ConsecutiveFailures: b.failures,
		LastFailureAt:       b.lastFailureAt,
		LastSuccessAt:       b.lastSuccessAt,
	}
	if b.open {
		h.RetryAt = b.openedAt.Add(b.cooldown)
	}
	return h
}

// admit decides whether a call may proceed and whether it is the Half-Open
// trial. Concurrent callers during Half-Open are rejected until the trial
// resolves, so a possibly-broken upstream never sees a thundering herd.
func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.effective(b.now()) {
	case Closed:
		return false, nil
	case HalfOpen:
		if b.trialInFlight {
			return false, b.openErr()
		}
		b.trialInFlight = true
		metrics.RecordBreakerTransition(string(b.source), HalfOpen.String())
		metrics.UpdateBreakerState(string(b.source), metrics.BreakerStateHalfOpen)
		return true, nil
	default:
		return false, b.openErr()
	}
}

// openErr builds the refusal error. Callers must hold mu.
func (b *Breaker) openErr() *OpenError {
	return &OpenError{Source: b.source, RetryAt: b.openedAt.Add(b.cooldown)}
}

// record applies a call outcome to the state machine.
func (b *Breaker) record(trial bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	countable := b.classify(callErr)

	if trial {
		b.trialInFlight = false
		if countable {
			// Trial failed: reopen and restart the cooldown.
			b.lastFailureAt = now
			b.toOpen(now)
			return
		}
		b.toClosed(now, callErr == nil)
		return
	}

	if !countable {
		b.failures = 0
		b.runStart = time.Time{}
		if callErr == nil {
			b.lastSuccessAt = now
		}
		return
	}

	b.lastFailureAt = now
	if b.runStart.IsZero() || now.Sub(b.runStart) > b.window {
		// Stale run: this failure starts a new window.
		b.runStart = now
		b.failures = 1
	} else {
		b.failures++
	}
	if !b.open && b.failures >= b.thresh {
		b.toOpen(now)
	}
}

func (b *Breaker) toOpen(now time.Time) {
	b.open = true
	b.openedAt = now
	metrics.RecordBreakerTransition(string(b.source), Open.String())
	metrics.UpdateBreakerState(string(b.source), metrics.BreakerStateOpen)
}

func (b *Breaker) toClosed(now time.Time, success bool) {
	b.open = false
	b.failures = 0
	b.runStart = time.Time{}
	if success {
		b.lastSuccessAt = now
	}
	metrics.RecordBreakerTransition(string(b.source), Closed.String())
	metrics.UpdateBreakerState(string(b.source), metrics.BreakerStateClosed)
}

// effective computes the state at now. Callers must hold mu.
func (b *Breaker) effective(now time.Time) State {
	if !b.open {
		return Closed
	}
	if now.Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return Open
}
