package inference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRequiredStop is returned when stop sequences are required but the
	// completion ended without one.
	ErrNoRequiredStop = errors.New("a stop sequence is required but the response has none")
	// ErrUnsupportedStop is returned when a backend reports a stop type it
	// does not understand. It is never retried.
	ErrUnsupportedStop = errors.New("unsupported stop reason")
	ErrEmptyContent    = errors.New("response had no content")
)

// NonMatchingStopError reports a completion that halted on a word outside
// the registered stop set.
type NonMatchingStopError struct {
	Word string
}

func (e *NonMatchingStopError) Error() string {
	return fmt.Sprintf("a stop sequence is required but the response stopped on %q", e.Word)
}

// AttemptsError collects the errors of every failed attempt of one request.
type AttemptsError struct {
	Attempts int
	Errs     []error
}

func (e *AttemptsError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("request failed after %d attempts: %s", e.Attempts, strings.Join(msgs, "; "))
}

func (e *AttemptsError) Unwrap() []error {
	return e.Errs
}

// CheckFinish enforces req.Stops.Required against a completion.
func CheckFinish(req *Request, c *Completion) error {
	if !req.Stops.Required {
		return nil
	}
	if _, ok := c.MatchedStop(req.Stops); ok {
		return nil
	}
	if c.Finish == FinishStop && c.StopWord != "" {
		return &NonMatchingStopError{Word: c.StopWord}
	}
	return ErrNoRequiredStop
}

// Retryable reports whether another attempt of the same request may succeed.
func Retryable(err error) bool {
	var nonMatching *NonMatchingStopError
	switch {
	case errors.Is(err, ErrNoRequiredStop), errors.Is(err, ErrEmptyContent):
		return true
	case errors.As(err, &nonMatching):
		return true
	}
	return false
}
