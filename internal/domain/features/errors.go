package features

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is matched by *SchemaMismatchError via errors.Is.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// SchemaMismatchError describes how a model's declared features differ from
// the features this package supplies. It is fatal at startup.
type SchemaMismatchError struct {
	Missing    []string // supplied but not declared by the model
	Unexpected []string // declared by the model but not supplied
	Duplicate  []string // declared more than once
	Mistyped   []string // declared with a type the supplied value cannot fit
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected [%s]", strings.Join(e.Unexpected, ", ")))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate [%s]", strings.Join(e.Duplicate, ", ")))
	}
	if len(e.Mistyped) > 0 {
		parts = append(parts, fmt.Sprintf("mistyped [%s]", strings.Join(e.Mistyped, ", ")))
	}
	return ErrSchemaMismatch.Error() + ": " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

func (e *SchemaMismatchError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unexpected) == 0 && len(e.Duplicate) == 0 && len(e.Mistyped) == 0
}
