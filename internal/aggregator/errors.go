package aggregator

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrAllSourcesFailed = errors.New("all sources failed")
	ErrNoSources        = errors.New("no sources available for this query")
	ErrNoResolver       = errors.New("constituency resolver not configured")
)
