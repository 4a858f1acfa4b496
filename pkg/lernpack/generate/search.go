package generate

import (
	"fmt"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// ExhaustedError reports that no valid prompt was found within the
// attempt budget. It matches internalerr.ErrGenerationExhausted.
type ExhaustedError struct {
	PackID string
	StepID string
	// Slot is the prompt position that could not be filled, e.g. "prompt-004".
	Slot     string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("pack %s step %s %s: no valid prompt after %d attempts", e.PackID, e.StepID, e.Slot, e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	return internalerr.ErrGenerationExhausted
}

// Search draws up to limit candidates and returns the first one accepted
// by check, together with the number of attempts spent. check may return
// an amended candidate.
func Search[T any](limit int, draw func() T, check func(T) (T, bool)) (T, int, bool) {
	for attempt := 1; attempt <= limit; attempt++ {
		if c, ok := check(draw()); ok {
			return c, attempt, true
		}
	}
	var zero T
	return zero, limit, false
}
