// Package merge implements the deterministic multi-source merge policy.
//
// Sources are combined in their declared priority order, never in network
// completion order, so repeated merges of the same adapter results always
// produce the same sequence.
package merge

import (
	"sort"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/domain/query"
)

// Input is one source's contribution to a merge.
type Input struct {
	Source   model.SourceID
	Priority int // lower consults first; attribution winner on duplicates
	Bills    []model.Bill
}

// Result is the merged, filtered, windowed output.
type Result struct {
	Bills      []model.Bill // the requested page
	Total      int          // filtered matches before limit/offset windowing
	Duplicates int          // entries collapsed during dedupe
}

// Combine dedupes the inputs into one ordered sequence. Bills are keyed by
// their provider-native id, so the same bill surfaced by two providers
// collapses into one entry. First write wins: the higher-priority source
// keeps the attribution and later entries never overwrite earlier ones.
func Combine(inputs []Input) (bills []model.Bill, duplicates int) {
	ordered := make([]Input, len(inputs))
	copy(ordered, inputs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	seen := make(map[string]struct{})
	for _, input := range ordered {
		for _, bill := range input.Bills {
			if _, dup := seen[bill.NativeID]; dup {
				duplicates++
				continue
			}
			seen[bill.NativeID] = struct{}{}
			bills = append(bills, bill)
		}
	}
	return bills, duplicates
}

// Filter applies the caller-supplied topic and status filters. Filtering
// always runs after Combine so fallback decisions see the full candidate set.
func Filter(bills []model.Bill, topic string, status model.Status) []model.Bill {
	filtered := make([]model.Bill, 0, len(bills))
	for _, bill := range bills {
		if !bill.MatchesTopic(topic) {
			continue
		}
		if status != "" && bill.Status != status {
			continue
		}
		filtered = append(filtered, bill)
	}
	return filtered
}

// Window slices the filtered sequence to the requested page.
func Window(bills []model.Bill, offset, limit int) []model.Bill {
	if offset >= len(bills) {
		return []model.Bill{}
	}
	end := offset + limit
	if end > len(bills) {
		end = len(bills)
	}
	return bills[offset:end]
}

// Apply runs the full pipeline for one query: combine, filter, window.
func Apply(inputs []Input, q query.Query) Result {
	combined, duplicates := Combine(inputs)
	filtered := Filter(combined, q.Topic, q.Status)
	return Result{
		Bills:      Window(filtered, q.Offset, q.Limit),
		Total:      len(filtered),
		Duplicates: duplicates,
	}
}
