package inputs

import (
	"errors"
	"strings"
)

// ErrInvalidInput is the sentinel matched by ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError lists every domain violation found in a Raw.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

// Is lets callers match with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
