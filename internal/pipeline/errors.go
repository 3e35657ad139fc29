package pipeline

import (
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// StageError wraps a stage failure with the stage name and the identity being resolved
type StageError struct {
	Stage    string
	Identity types.StageIdentity
	Cause    error
}

func (e *StageError) Error() string {
	if e.Identity.IsZero() {
		return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("stage %s (%s) failed: %v", e.Stage, e.Identity.Short(), e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
