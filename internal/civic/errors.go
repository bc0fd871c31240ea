package civic

import "errors"

// Sentinel kinds for resolver errors.
var (
	ErrUnresolved = errors.New("no representatives cover this constituency")
)
