package kv

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed = errors.New("kv store closed")
)
