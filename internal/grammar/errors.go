package grammar

import (
	"errors"
	"fmt"
)

var ErrEmptyList = errors.New("list has no items")

// ParseError reports generated text that does not parse as the target type.
type ParseError struct {
	Content string
	Type    string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse response content (%s) as type (%s): %v", e.Content, e.Type, e.Err)
	}
	return fmt.Sprintf("failed to parse response content (%s) as type (%s)", e.Content, e.Type)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(content, typ string) error {
	return &ParseError{Content: content, Type: typ}
}
