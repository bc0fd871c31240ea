// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Query serves one normalized bill query. clientETag carries the
	// unquoted If-None-Match validator; empty means unconditional.
	Query(ctx context.Context, q query.Query, clientETag string) (types.QueryReply, error)

	// Sources reports the per-upstream operational snapshot.
	Sources() []types.SourceStatus

	// GetStats exposes service statistics for monitoring.
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	billsHandler   *BillsHandler
	sourcesHandler *SourcesHandler
	limiters       *limiterStore
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithRateLimit enables per-client request throttling.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiters = newLimiterStore(rps, burst)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		billsHandler:   NewBillsHandler(deps),
		sourcesHandler: NewSourcesHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux. The health endpoint bypasses
// rate limiting so metric scrapes never contend with API traffic.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	if s.limiters != nil {
		s.limiters.startJanitor(ctx)
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/bills", s.chain(s.billsHandler.HandleGetBills, "bills"))
	mux.HandleFunc("/sources", s.chain(s.sourcesHandler.HandleGetSources, "sources"))
	mux.HandleFunc("/stats", s.chain(s.statsHandler.HandleStats, "stats"))
}

func (s *Server) chain(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	h = MetricsMiddleware(h, endpoint)
	if s.limiters != nil {
		h = RateLimitMiddleware(s.limiters, h)
	}
	return RequestIDMiddleware(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
