package analysis

import (
	"context"
	"errors"
	"fmt"

	"truthlens/internal/models"
)

// ErrRunCancelled is returned by Run when the run was reset, replaced by a
// newer run, or its context ended before it finished
var ErrRunCancelled = errors.New("analysis run cancelled")

// SimulationError records which stage a run failed in
type SimulationError struct {
	Stage   models.StageID
	Message string
	Cause   error
}

func (e *SimulationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
}

func (e *SimulationError) Unwrap() error {
	return e.Cause
}

// NewSimulationError creates a new simulation error
func NewSimulationError(stage models.StageID, message string, cause error) *SimulationError {
	return &SimulationError{
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// IsCancelled reports whether err means the run was abandoned rather than failed
func IsCancelled(err error) bool {
	return errors.Is(err, ErrRunCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
