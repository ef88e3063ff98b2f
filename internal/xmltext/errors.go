package xmltext

import (
	"errors"
	"fmt"
)

// MalformedInputError is returned when a non-empty value cannot be parsed as
// legacy markup
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed legacy markup: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// IsMalformedInput reports whether err wraps a *MalformedInputError
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

var (
	errNoRoot        = errors.New("document has no root element")
	errMultipleRoots = errors.New("document has more than one root element")
	errTextOutside   = errors.New("text content outside of the root element")
)
