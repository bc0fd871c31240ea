// Package quota enforces the hard per-period call budget for each upstream
// source. Acquisition is an atomic check-and-increment: two concurrent
// callers can never jointly push a source past its ceiling.
package quota

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/kv"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// DefaultPeriod approximates one billing month.
const DefaultPeriod = 720 * time.Hour

const persistPrefix = "quota:"

// Decision is the outcome of one acquisition attempt. A denial is not an
// upstream failure: no remote call was made.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Snapshot reports one source's quota state for health surfaces.
type Snapshot struct {
	Source      model.SourceID `json:"source"`
	Limit       int            `json:"limit"`
	Used        int            `json:"used"`
	Remaining   int            `json:"remaining"`
	PeriodStart time.Time      `json:"period_start"`
	ResetAt     time.Time      `json:"reset_at"`
}

// persistedState is the durable subset of a source's quota state. The limit
// always comes from configuration, never from the store.
type persistedState struct {
	Used        int       `json:"used"`
	PeriodStart time.Time `json:"period_start"`
}

// sourceQuota is one source's independently locked state.
type sourceQuota struct {
	mu          sync.Mutex
	limit       int
	used        int
	periodStart time.Time
}

// Limiter tracks the remaining call budget per source.
type Limiter struct {
	mu      sync.RWMutex
	sources map[model.SourceID]*sourceQuota
	period  time.Duration
	store   kv.Store
	now     func() time.Time
	log     logger.Logger
}

// New creates a limiter with no registered sources.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		sources: make(map[model.SourceID]*sourceQuota),
		period:  DefaultPeriod,
		now:     time.Now,
		log:     logger.Named("quota"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register declares a source's hard ceiling. Re-registering replaces the
// limit but keeps any consumed budget.
func (l *Limiter) Register(source model.SourceID, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sq, ok := l.sources[source]; ok {
		sq.mu.Lock()
		sq.limit = limit
		sq.mu.Unlock()
	} else {
		l.sources[source] = &sourceQuota{limit: limit, periodStart: l.now()}
	}
	metrics.UpdateQuotaLimit(string(source), limit)
}

// TryAcquire consumes one unit of source's budget if any remains. It never
// blocks; the decision is immediate.
func (l *Limiter) TryAcquire(ctx context.Context, source model.SourceID) (Decision, error) {
	sq, err := l.lookup(source)
	if err != nil {
		return Decision{}, err
	}

	sq.mu.Lock()
	now := l.now()
	sq.rollover(now, l.period)
	resetAt := sq.periodStart.Add(l.period)

	if sq.used >= sq.limit {
		sq.mu.Unlock()
		metrics.RecordQuotaDenied(string(source))
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	sq.used++
	state := persistedState{Used: sq.used, PeriodStart: sq.periodStart}
	remaining := sq.limit - sq.used
	sq.mu.Unlock()

	metrics.UpdateQuotaUsed(string(source), state.Used)
	l.persist(ctx, source, state)
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

// Acquire is the error-returning form of TryAcquire used by source guards:
// a denial comes back as an *ExhaustedError carrying the reset time.
func (l *Limiter) Acquire(ctx context.Context, source model.SourceID) error {
	d, err := l.TryAcquire(ctx, source)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &ExhaustedError{Source: source, ResetAt: d.ResetAt}
	}
	return nil
}

// Snapshot reports the current state of one source.
func (l *Limiter) Snapshot(source model.SourceID) (Snapshot, error) {
	sq, err := l.lookup(source)
	if err != nil {
		return Snapshot{}, err
	}

	sq.mu.Lock()
	defer sq.mu.Unlock()
	sq.rollover(l.now(), l.period)
	return Snapshot{
		Source:      source,
		Limit:       sq.limit,
		Used:        sq.used,
		Remaining:   sq.limit - sq.used,
		PeriodStart: sq.periodStart,
		ResetAt:     sq.periodStart.Add(l.period),
	}, nil
}

// Snapshots reports every registered source, ordered by source id.
func (l *Limiter) Snapshots() []Snapshot {
	l.mu.RLock()
	ids := make([]model.SourceID, 0, len(l.sources))
	for id := range l.sources {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snapshots := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, err := l.Snapshot(id); err == nil {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// Restore loads persisted consumption for every registered source. Missing
// or malformed state is ignored; the period then starts fresh.
func (l *Limiter) Restore(ctx context.Context) {
	if l.store == nil {
		return
	}

	l.mu.RLock()
	ids := make([]model.SourceID, 0, len(l.sources))
	for id := range l.sources {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	for _, id := range ids {
		raw, ok, err := l.store.Get(ctx, persistPrefix+string(id))
		if err != nil {
			l.log.Warn(ctx, "quota state load failed", logger.String("source", string(id)), logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		var state persistedState
		if err := json.Unmarshal(raw, &state); err != nil {
			l.log.Warn(ctx, "quota state corrupt, starting fresh", logger.String("source", string(id)), logger.Error(err))
			continue
		}

		sq, err := l.lookup(id)
		if err != nil {
			continue
		}
		sq.mu.Lock()
		sq.used = state.Used
		if !state.PeriodStart.IsZero() {
			sq.periodStart = state.PeriodStart
		}
		sq.rollover(l.now(), l.period)
		used := sq.used
		sq.mu.Unlock()

		metrics.UpdateQuotaUsed(string(id), used)
		l.log.Info(ctx, "quota state restored", logger.String("source", string(id)), logger.Int("used", used))
	}
}

func (l *Limiter) lookup(source model.SourceID) (*sourceQuota, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sq, ok := l.sources[source]
	if !ok {
		return nil, ErrUnknownSource
	}
	return sq, nil
}

// persist writes consumption state out best-effort. Durability never gates
// an acquisition decision.
func (l *Limiter) persist(ctx context.Context, source model.SourceID, state persistedState) {
	if l.store == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := l.store.Set(ctx, persistPrefix+string(source), raw, 0); err != nil {
		l.log.Warn(ctx, "quota state persist failed", logger.String("source", string(source)), logger.Error(err))
	}
}

// rollover advances the period window when it has elapsed. Whole periods
// are skipped at once so long downtime cannot leave a stale window.
func (s *sourceQuota) rollover(now time.Time, period time.Duration) {
	if s.periodStart.IsZero() {
		s.periodStart = now
		return
	}
	if elapsed := now.Sub(s.periodStart); elapsed >= period {
		steps := elapsed / period
		s.periodStart = s.periodStart.Add(steps * period)
		s.used = 0
	}
}
