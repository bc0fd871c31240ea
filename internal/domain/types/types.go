// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/civiclens/billhub/internal/breaker"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/quota"
)

// OutcomeStatus classifies how one source fared during an aggregation.
type OutcomeStatus string

// Per-source outcomes. Pending is not a definitive failure: the source may
// have been healthy and simply lost the race against the request deadline.
const (
	OutcomeOK            OutcomeStatus = "ok"
	OutcomeQuotaExceeded OutcomeStatus = "quota_exceeded"
	OutcomeCircuitOpen   OutcomeStatus = "circuit_open"
	OutcomeUpstreamError OutcomeStatus = "upstream_error"
	OutcomePending       OutcomeStatus = "pending"
)

// DefinitiveFailure reports whether the outcome is a completed failure,
// as opposed to a success or a call abandoned at the deadline.
func (s OutcomeStatus) DefinitiveFailure() bool {
	switch s {
	case OutcomeQuotaExceeded, OutcomeCircuitOpen, OutcomeUpstreamError:
		return true
	default:
		return false
	}
}

// SourceOutcome records one source's contribution to an aggregation.
type SourceOutcome struct {
	Source model.SourceID `json:"source"`
	Status OutcomeStatus  `json:"status"`
	Bills  int            `json:"bills"`
	Reason string         `json:"reason,omitempty"` // sanitized classification detail, never a raw upstream body
}

// QueryResult is the merged outcome of one aggregation: the windowed bill
// sequence plus provenance for every source consulted.
type QueryResult struct {
	Bills     []model.Bill    `json:"bills"`
	Total     int             `json:"total"` // filtered matches before limit/offset windowing
	Sources   []SourceOutcome `json:"sources"`
	Partial   bool            `json:"partial"` // at least one source missing from an otherwise served response
	FetchedAt time.Time       `json:"fetched_at"`
}

// CacheState classifies how a response relates to the cache.
type CacheState string

// Cache states surfaced to callers (the X-Cache header).
const (
	CacheHit   CacheState = "hit"   // served fresh from cache
	CacheStale CacheState = "stale" // served past TTL, revalidation underway or failed
	CacheMiss  CacheState = "miss"  // freshly aggregated
)

// QueryReply bundles a served result with the cache metadata the transport
// layer turns into headers. When NotModified is set the caller's
// conditional token matched and Result carries no bills.
type QueryReply struct {
	Result      QueryResult
	ETag        string
	Cache       CacheState
	Age         time.Duration
	TTL         time.Duration
	NotModified bool
}

// SourceStatus is the per-upstream operational snapshot served by the
// sources endpoint: declared priority, breaker health and quota budget.
type SourceStatus struct {
	Source   model.SourceID `json:"source"`
	Priority int            `json:"priority"`
	Health   breaker.Health `json:"health"`
	Quota    quota.Snapshot `json:"quota"`
}

// Contributed returns the sources that completed successfully.
func (r QueryResult) Contributed() []model.SourceID {
	var sources []model.SourceID
	for _, outcome := range r.Sources {
		if outcome.Status == OutcomeOK {
			sources = append(sources, outcome.Source)
		}
	}
	return sources
}
