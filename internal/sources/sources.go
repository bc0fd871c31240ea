// Package sources defines the upstream adapter contract and the guard that
// wraps every adapter call with the source's quota limiter and circuit
// breaker, in that order. Adapters normalize provider payloads into the
// unified bill model and never retry; retry policy lives upstream in the
// aggregator so quota consumption stays predictable.
package sources

import (
	"context"
	"errors"
	"time"

	"github.com/civiclens/billhub/internal/breaker"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/quota"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Page bounds for adapter requests. MaxPageSize caps the fetch depth a
// single call may ask a provider for; offset+limit windows beyond it are
// served best-effort from the capped candidate set.
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Operation names a fetch variant, used as a metrics label.
type Operation string

// Fetch operations.
const (
	OpRecent    Operation = "recent"
	OpByTopic   Operation = "by_topic"
	OpByStatus  Operation = "by_status"
	OpBySponsor Operation = "by_sponsor"
)

// Role scopes a sponsor-filtered fetch to one kind of association.
type Role string

// Sponsor association roles.
const (
	RoleSponsor   Role = "sponsor"
	RoleCosponsor Role = "cosponsor"
	RoleCommittee Role = "committee"
)

// AllRoles in declared merge order.
func AllRoles() []Role { return []Role{RoleSponsor, RoleCosponsor, RoleCommittee} }

// Page is provider-agnostic pagination. Adapters translate it to their
// provider's native parameters.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to adapter bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Client is one upstream provider. Implementations translate provider-native
// pagination and filters, validate the response shape, normalize into the
// unified bill model and tag provenance. Exactly one remote call per method
// invocation, so one guarded call always costs one quota unit.
type Client interface {
	Source() model.SourceID
	Recent(ctx context.Context, page Page) ([]model.Bill, error)
	ByTopic(ctx context.Context, topic string, page Page) ([]model.Bill, error)
	ByStatus(ctx context.Context, status model.Status, page Page) ([]model.Bill, error)
	BySponsor(ctx context.Context, role Role, sponsorIDs []string, page Page) ([]model.Bill, error)
}

// Source is a Client guarded by its quota limiter and circuit breaker.
// Quota is checked first: a denial never reaches the breaker, and a breaker
// refusal after a grant still costs the unit, since acquisition is counted
// per attempted call.
type Source struct {
	client   Client
	limiter  *quota.Limiter
	breaker  *breaker.Breaker
	priority int
	roles    []Role
	log      logger.Logger
}

// New wraps client with its source's limiter and breaker.
func New(client Client, limiter *quota.Limiter, brk *breaker.Breaker, opts ...Option) *Source {
	s := &Source{
		client:  client,
		limiter: limiter,
		breaker: brk,
		roles:   AllRoles(),
		log:     logger.Named("sources"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID reports which upstream this source is.
func (s *Source) ID() model.SourceID { return s.client.Source() }

// Priority is this source's position in the declared merge order. Lower
// wins duplicates.
func (s *Source) Priority() int { return s.priority }

// Roles lists the sponsor associations this source can filter by, in
// declared merge order.
func (s *Source) Roles() []Role {
	out := make([]Role, len(s.roles))
	copy(out, s.roles)
	return out
}

// SupportsRole reports whether this source can serve role-filtered fetches.
func (s *Source) SupportsRole(role Role) bool {
	for _, r := range s.roles {
		if r == role {
			return true
		}
	}
	return false
}

// Health snapshots the breaker state for this source.
func (s *Source) Health() breaker.Health { return s.breaker.Health() }

// Quota snapshots the remaining call budget for this source.
func (s *Source) Quota() (quota.Snapshot, error) { return s.limiter.Snapshot(s.ID()) }

// Recent fetches the most recently active bills.
func (s *Source) Recent(ctx context.Context, page Page) ([]model.Bill, error) {
	return s.guarded(ctx, OpRecent, func(ctx context.Context) ([]model.Bill, error) {
		return s.client.Recent(ctx, page)
	})
}

// ByTopic fetches bills whose subjects match topic.
func (s *Source) ByTopic(ctx context.Context, topic string, page Page) ([]model.Bill, error) {
	return s.guarded(ctx, OpByTopic, func(ctx context.Context) ([]model.Bill, error) {
		return s.client.ByTopic(ctx, topic, page)
	})
}

// ByStatus fetches bills at a given lifecycle stage.
func (s *Source) ByStatus(ctx context.Context, status model.Status, page Page) ([]model.Bill, error) {
	return s.guarded(ctx, OpByStatus, func(ctx context.Context) ([]model.Bill, error) {
		return s.client.ByStatus(ctx, status, page)
	})
}

// BySponsor fetches bills associated with the given sponsor ids in role.
func (s *Source) BySponsor(ctx context.Context, role Role, sponsorIDs []string, page Page) ([]model.Bill, error) {
	return s.guarded(ctx, OpBySponsor, func(ctx context.Context) ([]model.Bill, error) {
		return s.client.BySponsor(ctx, role, sponsorIDs, page)
	})
}

func (s *Source) guarded(ctx context.Context, op Operation, fetch func(context.Context) ([]model.Bill, error)) ([]model.Bill, error) {
	id := string(s.ID())

	if err := s.limiter.Acquire(ctx, s.ID()); err != nil {
		metrics.RecordUpstreamRequest(id, string(op), string(Outcome(err)))
		s.log.Warn(ctx, "call refused by quota", logger.String("source", id), logger.String("operation", string(op)))
		return nil, err
	}

	var bills []model.Bill
	start := time.Now()
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		fetched, callErr := fetch(ctx)
		if callErr != nil {
			return callErr
		}
		bills = fetched
		return nil
	})
	if !errors.Is(err, breaker.ErrOpen) {
		metrics.RecordUpstreamLatency(id, string(op), float64(time.Since(start).Milliseconds()))
	}
	metrics.RecordUpstreamRequest(id, string(op), string(Outcome(err)))

	if err != nil {
		s.log.Warn(ctx, "upstream call failed",
			logger.String("source", id),
			logger.String("operation", string(op)),
			logger.String("outcome", string(Outcome(err))),
			logger.Error(err))
		return nil, err
	}

	metrics.RecordBillsFetched(id, len(bills))
	return bills, nil
}

// Outcome classifies a guarded fetch error into the provenance status
// reported to callers.
func Outcome(err error) types.OutcomeStatus {
	switch {
	case err == nil:
		return types.OutcomeOK
	case errors.Is(err, quota.ErrExhausted):
		return types.OutcomeQuotaExceeded
	case errors.Is(err, breaker.ErrOpen):
		return types.OutcomeCircuitOpen
	default:
		return types.OutcomeUpstreamError
	}
}
