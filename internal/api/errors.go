package api

import (
	"context"
	"errors"

	"github.com/samcharles93/cascade/internal/cascade"
	"github.com/samcharles93/cascade/internal/flowdef"
)

// ErrInvalidRequest marks failures caused by the request body. Handlers
// answer them with 400.
var ErrInvalidRequest = errors.New("invalid_request")

// invalidRequestError carries the first offending field of a flow or
// grammar definition so clients can point at it.
type invalidRequestError struct {
	cause error
	param string
}

func (e *invalidRequestError) Error() string { return e.cause.Error() }

func (e *invalidRequestError) Unwrap() []error {
	return []error{ErrInvalidRequest, e.cause}
}

func newInvalidRequest(cause error) error {
	e := &invalidRequestError{cause: cause}
	var fe *flowdef.FieldError
	if errors.As(cause, &fe) {
		e.param = fe.Path
	}
	return e
}

// invalidParam returns the field path recorded by newInvalidRequest.
func invalidParam(err error) string {
	var ire *invalidRequestError
	if errors.As(err, &ire) {
		return ire.param
	}
	return ""
}

// runError classifies a failed run for CascadeResponse.Error.
func runError(err error) *ResponseError {
	e := &ResponseError{Message: err.Error(), Type: "server_error"}
	var exhausted *cascade.ExhaustedError
	switch {
	case errors.As(err, &exhausted):
		e.Type = "round_exhausted_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Type = "cancelled_error"
	case errors.Is(err, cascade.ErrNoResult):
		e.Type = "no_result_error"
	}
	return e
}
