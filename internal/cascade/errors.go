package cascade

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutcome is returned when an inference step has neither output nor
	// a no-result sentinel to show.
	ErrNoOutcome = errors.New("step has no output and no no-result sentinel")
	// ErrUnsupportedVariant is returned by operations that only apply to
	// inference steps.
	ErrUnsupportedVariant = errors.New("operation not supported for this step type")
	ErrNoSteps            = errors.New("no steps in round")
	ErrNoRounds           = errors.New("no rounds in cascade")
	ErrNoResult           = errors.New("cascade produced no result")
	ErrRoundExhausted     = errors.New("round exhausted its retries")
)

// ExhaustedError is returned when a round gives up after too many failed
// step attempts. Err is the last failure.
type ExhaustedError struct {
	Round    string
	Failures int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("round %q failed %d times: %v", e.Round, e.Failures, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRoundExhausted
}
