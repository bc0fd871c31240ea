package query

import (
	"errors"
)

// Sentinel kinds for query validation errors. The router maps any of these
// to a client-side validation failure; none of them ever reach an adapter.
var (
	ErrInvalidSource    = errors.New("unknown source")
	ErrInvalidStatus    = errors.New("unknown status stage")
	ErrInvalidZip       = errors.New("malformed zip code")
	ErrInvalidLimit     = errors.New("limit out of range")
	ErrInvalidOffset    = errors.New("offset out of range")
	ErrConflictingScope = errors.New("zip code and representative id are mutually exclusive")
)

// IsValidation reports whether err is any query validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSource) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidZip) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrInvalidOffset) ||
		errors.Is(err, ErrConflictingScope)
}
