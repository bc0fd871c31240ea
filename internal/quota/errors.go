package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
)

// Sentinel kinds for limiter errors.
var (
	ErrUnknownSource = errors.New("source not registered with quota limiter")
	ErrExhausted     = errors.New("quota exhausted")
)

// ExhaustedError is returned by Acquire when a source's period budget is
// spent. ResetAt is when the next period opens. It matches ErrExhausted
// under errors.Is.
type ExhaustedError struct {
	Source  model.SourceID
	ResetAt time.Time
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("source %s: quota exhausted until %s", e.Source, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }
