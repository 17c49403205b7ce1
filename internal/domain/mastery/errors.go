package mastery

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter matches any *InvalidParameterError.
	ErrInvalidParameter = errors.New("invalid bkt parameter")
	// ErrTransientSignal matches any *TransientSignalError.
	ErrTransientSignal = errors.New("recent performance signal unavailable")
	// ErrInvalidInput matches any *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned by stores when a unique key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// NotFoundError reports an unknown content item or knowledge component.
type NotFoundError struct {
	Resource string
	ID       string
	Reason   string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s not found: %s", e.Resource, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidParameterError reports a BKT probability outside [0,1] supplied
// through configuration.
type InvalidParameterError struct {
	Field string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("bkt parameter %s=%v outside [0,1]", e.Field, e.Value)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// TransientSignalError wraps a failed recent-performance lookup. It is logged
// and never surfaced to callers.
type TransientSignalError struct {
	Err error
}

func (e *TransientSignalError) Error() string {
	if e.Err == nil {
		return ErrTransientSignal.Error()
	}
	return ErrTransientSignal.Error() + ": " + e.Err.Error()
}

func (e *TransientSignalError) Unwrap() error { return e.Err }

func (e *TransientSignalError) Is(target error) bool { return target == ErrTransientSignal }

// InvalidInputError reports a malformed response submission.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
