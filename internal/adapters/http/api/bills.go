// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/civiclens/billhub/internal/aggregator"
	"github.com/civiclens/billhub/internal/breaker"
	"github.com/civiclens/billhub/internal/civic"
	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/quota"
	"github.com/civiclens/billhub/internal/sources"
)

// BillsDependencies defines the interface for bill queries.
type BillsDependencies interface {
	Query(ctx context.Context, q query.Query, clientETag string) (types.QueryReply, error)
}

// BillsHandler handles bill query requests.
type BillsHandler struct {
	deps BillsDependencies
}

// NewBillsHandler creates a new bills handler.
func NewBillsHandler(deps BillsDependencies) *BillsHandler {
	return &BillsHandler{deps: deps}
}

// HandleGetBills handles GET /bills requests. Conditional requests are
// honored via If-None-Match; responses carry the entry's validator and
// cache provenance headers.
func (h *BillsHandler) HandleGetBills(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_bills"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	values := r.URL.Query()
	q, err := query.Parse(query.Params{
		Source:           values.Get("source"),
		ZipCode:          values.Get("zip"),
		RepresentativeID: values.Get("rep"),
		Topic:            values.Get("topic"),
		Status:           values.Get("status"),
		Limit:            values.Get("limit"),
		Offset:           values.Get("offset"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	reply, err := h.deps.Query(r.Context(), q, clientETag(r))
	if err != nil {
		writeQueryError(w, op, err)
		return
	}

	ttl := int(reply.TTL.Seconds())
	w.Header().Set("ETag", `"`+reply.ETag+`"`)
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", ttl, ttl))
	w.Header().Set("Age", strconv.Itoa(int(reply.Age.Seconds())))
	w.Header().Set("X-Cache", string(reply.Cache))

	if reply.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, reply.Result)
}

// clientETag extracts the If-None-Match validator, tolerating quoting and
// weak-validator prefixes.
func clientETag(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("If-None-Match"))
	raw = strings.TrimPrefix(raw, "W/")
	return strings.Trim(raw, `"`)
}

// writeQueryError translates aggregation failures into the HTTP error
// taxonomy. Throttle-shaped failures carry a Retry-After hint. Provider
// failure bodies and internal error text never reach the response; those
// stay in logs.
func writeQueryError(w http.ResponseWriter, op string, err error) {
	var exhausted *quota.ExhaustedError
	var open *breaker.OpenError
	switch {
	case errors.As(err, &exhausted):
		w.Header().Set("Retry-After", retryAfter(exhausted.ResetAt))
		writeError(w, http.StatusTooManyRequests, "quota_exhausted", Wrap(op, err))
	case errors.As(err, &open):
		w.Header().Set("Retry-After", retryAfter(open.RetryAt))
		writeError(w, http.StatusServiceUnavailable, "circuit_open", Wrap(op, err))
	case errors.Is(err, aggregator.ErrAllSourcesFailed):
		writeError(w, http.StatusServiceUnavailable, "all_sources_failed", Wrap(op, err))
	case errors.Is(err, sources.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", Wrap(op, upstreamReason(err)))
	case errors.Is(err, civic.ErrUnresolved), errors.Is(err, aggregator.ErrNoSources):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, aggregator.ErrNoResolver):
		writeError(w, http.StatusServiceUnavailable, "resolver_unconfigured", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}

// upstreamReason reports a provider failure by its status alone. The
// provider's response excerpt rides in UpstreamError.Message and must not
// be echoed to clients.
func upstreamReason(err error) error {
	var upstream *sources.UpstreamError
	if errors.As(err, &upstream) && upstream.Status != 0 {
		return fmt.Errorf("source %s: upstream status %d", upstream.Source, upstream.Status)
	}
	return sources.ErrUpstream
}

func retryAfter(at time.Time) string {
	secs := int(math.Ceil(time.Until(at).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
