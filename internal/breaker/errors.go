package breaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
)

// Sentinel kinds for breaker errors.
var (
	ErrOpen = errors.New("circuit open")
)

// OpenError is returned when the breaker short-circuits a call without
// reaching the upstream. RetryAt is the earliest moment a trial call may be
// admitted. It matches ErrOpen under errors.Is.
type OpenError struct {
	Source  model.SourceID
	RetryAt time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("source %s: circuit open until %s", e.Source, e.RetryAt.UTC().Format(time.RFC3339))
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }
