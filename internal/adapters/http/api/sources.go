// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/civiclens/billhub/internal/domain/types"
)

// SourcesDependencies defines the interface for source status reads.
type SourcesDependencies interface {
	Sources() []types.SourceStatus
}

// SourcesHandler handles source status requests.
type SourcesHandler struct {
	deps SourcesDependencies
}

// NewSourcesHandler creates a new sources handler.
func NewSourcesHandler(deps SourcesDependencies) *SourcesHandler {
	return &SourcesHandler{deps: deps}
}

type sourcesResponse struct {
	Sources []types.SourceStatus `json:"sources"`
}

// HandleGetSources handles GET /sources requests.
func (h *SourcesHandler) HandleGetSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	statuses := h.deps.Sources()
	if statuses == nil {
		statuses = []types.SourceStatus{}
	}
	writeJSON(w, http.StatusOK, sourcesResponse{Sources: statuses})
}
