// Package query normalizes and fingerprints inbound bill queries.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/civiclens/billhub/internal/domain/model"
)

// Validation bounds for inbound parameters.
const (
	DefaultLimit = 20
	MaxLimit     = 100

	fingerprintLen = 16
	zipLen         = 5
)

// Mode classifies the shape of a query. Fallback and failure policy are
// keyed on the mode, not on which adapters happen to answer.
type Mode string

// Query shapes.
const (
	ModeSingle      Mode = "single"      // explicit source requested
	ModeMixed       Mode = "mixed"       // no source given, consult all
	ModeConstituent Mode = "constituent" // scoped to a zip code or representative
)

// Params carries raw inbound parameters before validation.
type Params struct {
	Source           string
	ZipCode          string
	RepresentativeID string
	Topic            string
	Status           string
	Limit            string
	Offset           string
}

// Query is a validated, normalized bill query. Equivalent inbound requests
// normalize to identical Query values and therefore identical fingerprints.
type Query struct {
	Source           model.SourceID // empty in mixed and unscoped constituent mode
	ZipCode          string
	RepresentativeID string
	Topic            string // lowercased substring filter
	Status           model.Status
	Limit            int
	Offset           int
}

// Parse validates raw parameters and produces a normalized Query.
func Parse(p Params) (Query, error) {
	var q Query

	if raw := strings.TrimSpace(p.Source); raw != "" {
		source, ok := model.ParseSource(raw)
		if !ok {
			return Query{}, fmt.Errorf("%w: %q", ErrInvalidSource, raw)
		}
		q.Source = source
	}

	q.ZipCode = strings.TrimSpace(p.ZipCode)
	if q.ZipCode != "" && !validZip(q.ZipCode) {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidZip, q.ZipCode)
	}

	q.RepresentativeID = strings.TrimSpace(p.RepresentativeID)
	if q.ZipCode != "" && q.RepresentativeID != "" {
		return Query{}, ErrConflictingScope
	}

	q.Topic = strings.ToLower(strings.TrimSpace(p.Topic))

	if raw := strings.TrimSpace(p.Status); raw != "" {
		status, ok := model.ParseStatus(raw)
		if !ok {
			return Query{}, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		q.Status = status
	}

	limit, err := parseBound(p.Limit, DefaultLimit)
	if err != nil || limit < 1 || limit > MaxLimit {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidLimit, p.Limit)
	}
	q.Limit = limit

	offset, err := parseBound(p.Offset, 0)
	if err != nil || offset < 0 {
		return Query{}, fmt.Errorf("%w: %q", ErrInvalidOffset, p.Offset)
	}
	q.Offset = offset

	return q, nil
}

func parseBound(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func validZip(zip string) bool {
	if len(zip) != zipLen {
		return false
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Mode classifies the query shape for policy selection. Constituent scoping
// takes precedence over an explicit source.
func (q Query) Mode() Mode {
	switch {
	case q.ZipCode != "" || q.RepresentativeID != "":
		return ModeConstituent
	case q.Source != "":
		return ModeSingle
	default:
		return ModeMixed
	}
}

// Fingerprint derives the deterministic cache key for this query. The field
// order here is fixed, so inbound parameter ordering never changes the key.
func (q Query) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "source=%s\n", q.Source)
	fmt.Fprintf(&b, "zip=%s\n", q.ZipCode)
	fmt.Fprintf(&b, "rep=%s\n", q.RepresentativeID)
	fmt.Fprintf(&b, "topic=%s\n", q.Topic)
	fmt.Fprintf(&b, "status=%s\n", q.Status)
	fmt.Fprintf(&b, "limit=%d\n", q.Limit)
	fmt.Fprintf(&b, "offset=%d\n", q.Offset)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// String renders a compact form for logs.
func (q Query) String() string {
	parts := make([]string, 0, 7)
	if q.Source != "" {
		parts = append(parts, "source="+string(q.Source))
	}
	if q.ZipCode != "" {
		parts = append(parts, "zip="+q.ZipCode)
	}
	if q.RepresentativeID != "" {
		parts = append(parts, "rep="+q.RepresentativeID)
	}
	if q.Topic != "" {
		parts = append(parts, "topic="+q.Topic)
	}
	if q.Status != "" {
		parts = append(parts, "status="+string(q.Status))
	}
	parts = append(parts, fmt.Sprintf("limit=%d", q.Limit), fmt.Sprintf("offset=%d", q.Offset))
	return strings.Join(parts, " ")
}
