package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by Add and Load before Configure succeeded.
	ErrNotConfigured = errors.New("store: not configured")

	// ErrEmptyPath is returned by Configure for an empty path.
	ErrEmptyPath = errors.New("store: path is required")

	// ErrIOFailure marks every failure to stat, read or write the durable file.
	ErrIOFailure = errors.New("store: io failure")
)

// Error carries the operation and file behind a store failure.
type Error struct {
	Op   string // "configure", "load", "append"
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("store.%s %s: %v", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

func ioError(op, path string, err error) error {
	return &Error{Op: op, Path: path, Kind: ErrIOFailure, Err: err}
}
