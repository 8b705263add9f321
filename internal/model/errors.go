package model

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors, matched with errors.Is.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidMark  = errors.New("invalid mark")
	ErrDuplicateID  = errors.New("duplicate registration id")
)

var errNotFinite = errors.New("value is not a finite number")

// FieldError reports which input fields failed validation.
type FieldError struct {
	Fields []string // offending field names
	Value  string   // raw value, set for parse failures
	Kind   error    // ErrMissingField or ErrInvalidMark
	Err    error    // underlying parse error (optional)
}

func (e *FieldError) Error() string {
	fields := strings.Join(e.Fields, ", ")
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v: %v", fields, e.Value, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", fields, e.Kind)
}

func (e *FieldError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the error kind and the wrapped cause.
func (e *FieldError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}
