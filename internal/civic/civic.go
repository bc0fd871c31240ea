// Package civic resolves constituency inputs (a zip code or a
// representative id) into the bounded per-source sponsor scope that
// constituent-mode queries fan out over.
package civic

import (
	"context"
	"sort"
	"strings"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/pkg/metrics"
)

// DefaultMaxScope bounds how many sponsor ids a single constituency may
// expand to, keeping the downstream fan-out and quota cost predictable.
const DefaultMaxScope = 25

// Scope is the resolved sponsor scope: provider-native sponsor ids grouped
// by the source that understands them.
type Scope map[model.SourceID][]string

// IDs returns the scope's sponsor ids for one source.
func (s Scope) IDs(source model.SourceID) []string { return s[source] }

// Size counts sponsor ids across all sources.
func (s Scope) Size() int {
	n := 0
	for _, ids := range s {
		n += len(ids)
	}
	return n
}

// Resolver maps constituency inputs to sponsor scopes. Implementations are
// collaborators around the aggregation core; the in-repo Static resolver
// serves development and tests.
type Resolver interface {
	ResolveZip(ctx context.Context, zip string) (Scope, error)
	ResolveRep(ctx context.Context, repID string) (Scope, error)
}

// Representative seeds the static resolver: one legislator, the source
// tracking them, their provider-native sponsor id and the zip codes of the
// district they serve.
type Representative struct {
	ID        string         `json:"id" koanf:"id"`
	Name      string         `json:"name" koanf:"name"`
	Source    model.SourceID `json:"source" koanf:"source"`
	SponsorID string         `json:"sponsor_id" koanf:"sponsor_id"`
	Zips      []string       `json:"zips" koanf:"zips"`
}

// Static resolves constituencies from a fixed representative roster.
type Static struct {
	byRep    map[string]Representative
	byZip    map[string][]string // zip -> representative ids, insertion order
	maxScope int
}

// NewStatic builds a resolver over the given roster.
func NewStatic(reps []Representative, opts ...Option) *Static {
	s := &Static{
		byRep:    make(map[string]Representative, len(reps)),
		byZip:    make(map[string][]string),
		maxScope: DefaultMaxScope,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, rep := range reps {
		id := strings.TrimSpace(rep.ID)
		if id == "" || rep.SponsorID == "" {
			continue
		}
		if _, dup := s.byRep[id]; dup {
			continue
		}
		s.byRep[id] = rep
		for _, zip := range rep.Zips {
			zip = strings.TrimSpace(zip)
			if zip == "" {
				continue
			}
			s.byZip[zip] = append(s.byZip[zip], id)
		}
	}
	return s
}

// ResolveZip expands a zip code into the scope of every representative
// serving it.
func (s *Static) ResolveZip(_ context.Context, zip string) (Scope, error) {
	repIDs, ok := s.byZip[strings.TrimSpace(zip)]
	if !ok || len(repIDs) == 0 {
		metrics.RecordCivicLookup("miss")
		return nil, ErrUnresolved
	}

	scope := make(Scope)
	for _, repID := range repIDs {
		rep := s.byRep[repID]
		if !s.add(scope, rep) {
			break
		}
	}
	metrics.RecordCivicLookup("hit")
	return scope, nil
}

// ResolveRep expands a representative id into that legislator's scope.
func (s *Static) ResolveRep(_ context.Context, repID string) (Scope, error) {
	rep, ok := s.byRep[strings.TrimSpace(repID)]
	if !ok {
		metrics.RecordCivicLookup("miss")
		return nil, ErrUnresolved
	}

	scope := make(Scope)
	s.add(scope, rep)
	metrics.RecordCivicLookup("hit")
	return scope, nil
}

// Roster lists the seeded representatives ordered by id.
func (s *Static) Roster() []Representative {
	reps := make([]Representative, 0, len(s.byRep))
	for _, rep := range s.byRep {
		reps = append(reps, rep)
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].ID < reps[j].ID })
	return reps
}

// add appends rep's sponsor id to the scope, reporting whether the scope
// still has room.
func (s *Static) add(scope Scope, rep Representative) bool {
	if scope.Size() >= s.maxScope {
		return false
	}
	for _, existing := range scope[rep.Source] {
		if existing == rep.SponsorID {
			return true
		}
	}
	scope[rep.Source] = append(scope[rep.Source], rep.SponsorID)
	return true
}
