package sources

import (
	"sort"

	"github.com/civiclens/billhub/internal/domain/model"
)

// Registry holds every configured source in the declared merge priority
// order. The order is a property of the registry, fixed at construction;
// call completion timing never affects it.
type Registry struct {
	ordered []*Source
	byID    map[model.SourceID]*Source
}

// NewRegistry builds a registry over the given sources, ordered by
// priority with ties broken by source id so the order is total.
func NewRegistry(srcs ...*Source) *Registry {
	ordered := make([]*Source, len(srcs))
	copy(ordered, srcs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority() != ordered[j].Priority() {
			return ordered[i].Priority() < ordered[j].Priority()
		}
		return ordered[i].ID() < ordered[j].ID()
	})

	byID := make(map[model.SourceID]*Source, len(ordered))
	for _, s := range ordered {
		byID[s.ID()] = s
	}
	return &Registry{ordered: ordered, byID: byID}
}

// All returns every source in merge priority order.
func (r *Registry) All() []*Source {
	out := make([]*Source, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get looks a source up by id.
func (r *Registry) Get(id model.SourceID) (*Source, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// IDs lists the registered source ids in merge priority order.
func (r *Registry) IDs() []model.SourceID {
	ids := make([]model.SourceID, len(r.ordered))
	for i, s := range r.ordered {
		ids[i] = s.ID()
	}
	return ids
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.ordered) }
