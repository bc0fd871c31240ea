// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SourceID identifies an upstream legislative data provider.
type SourceID string

// Known upstream sources.
const (
	SourceFederal SourceID = "federal"
	SourceState   SourceID = "state"
)

// ParseSource maps an inbound source parameter to a known SourceID.
func ParseSource(s string) (SourceID, bool) {
	switch SourceID(strings.ToLower(strings.TrimSpace(s))) {
	case SourceFederal:
		return SourceFederal, true
	case SourceState:
		return SourceState, true
	default:
		return "", false
	}
}

// Status is the canonical lifecycle stage of a bill.
type Status string

// Bill lifecycle stages.
const (
	StatusIntroduced    Status = "introduced"
	StatusCommittee     Status = "committee"
	StatusPassedChamber Status = "passed_chamber"
	StatusPassedBoth    Status = "passed_both"
	StatusEnacted       Status = "enacted"
	StatusVetoed        Status = "vetoed"
	StatusFailed        Status = "failed"
)

// ParseStatus maps an inbound status parameter to a canonical stage.
// Hyphens are accepted in place of underscores.
func ParseStatus(s string) (Status, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch Status(normalized) {
	case StatusIntroduced, StatusCommittee, StatusPassedChamber,
		StatusPassedBoth, StatusEnacted, StatusVetoed, StatusFailed:
		return Status(normalized), true
	default:
		return "", false
	}
}

// Sponsor identifies the legislator backing a bill.
type Sponsor struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Party   string `json:"party,omitempty"`
	Chamber string `json:"chamber,omitempty"`
}

// Bill is the unified representation of a legislative bill.
// Constructed by a source adapter at fetch time and immutable afterwards;
// a fresher fetch supersedes an earlier one rather than mutating it.
type Bill struct {
	ID           string    `json:"id"`        // provenance-tagged: "<source>:<native id>"
	NativeID     string    `json:"native_id"` // provider-assigned identifier, unique only within its source
	Source       SourceID  `json:"source"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Sponsor      Sponsor   `json:"sponsor"`
	Status       Status    `json:"status"`
	Subjects     []string  `json:"subjects,omitempty"`
	IntroducedAt time.Time `json:"introduced_at"`
	LastActionAt time.Time `json:"last_action_at"`
}

// TagID builds the globally unique bill identifier from a source and the
// provider-native id. Native ids may collide across providers; the source
// prefix keeps the tagged ids distinct.
func TagID(source SourceID, nativeID string) string {
	return fmt.Sprintf("%s:%s", source, nativeID)
}

// NormalizeNativeID canonicalizes a provider bill number for cross-source
// identity. "H.R. 2045", "hr-2045" and "HR2045" all resolve to "hr2045",
// so the same bill reported by two providers dedupes on merge.
func NormalizeNativeID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch r {
		case ' ', '-', '.', '_':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchesTopic reports whether any subject contains topic, case-insensitively.
// An empty topic matches every bill.
func (b Bill) MatchesTopic(topic string) bool {
	if topic == "" {
		return true
	}
	needle := strings.ToLower(topic)
	for _, subject := range b.Subjects {
		if strings.Contains(strings.ToLower(subject), needle) {
			return true
		}
	}
	return false
}
