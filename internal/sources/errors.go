package sources

import (
	"errors"
	"fmt"

	"github.com/civiclens/billhub/internal/domain/model"
)

// Sentinel kinds for adapter errors.
var (
	ErrUpstream = errors.New("upstream call failed")
)

// UpstreamError reports a failed remote call or an unusable payload.
// Status carries the HTTP status the provider answered with; 0 means the
// call never completed (network error or timeout). A schema violation on an
// otherwise successful response keeps that response's status. It matches
// ErrUpstream under errors.Is.
type UpstreamError struct {
	Source  model.SourceID
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("source %s: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("source %s: upstream status %d: %s", e.Source, e.Status, e.Message)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Countable reports whether this failure counts against the source's
// breaker. Client faults (4xx) mean the request was wrong, not the
// upstream; everything else points at the provider.
func (e *UpstreamError) Countable() bool {
	return e.Status < 400 || e.Status >= 500
}

// Countable is the breaker failure classifier for adapter errors: network
// errors, timeouts, 5xx responses and schema violations count; client
// faults do not.
func Countable(err error) bool {
	if err == nil {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Countable()
	}
	return true
}
