package analysis

import (
	"errors"
	"fmt"

	"nomiko-backend/models"
)

// ErrorKind classifies why an invocation failed. Callers handle every kind
// the same way; the kind is kept for logs and metrics.
type ErrorKind string

const (
	KindInput      ErrorKind = "input"
	KindTransport  ErrorKind = "transport"
	KindValidation ErrorKind = "validation"
)

var (
	ErrInputInvalid     = errors.New("capability input invalid")
	ErrTransportFailed  = errors.New("model service call failed")
	ErrValidationFailed = errors.New("model output failed validation")
)

// Error is the single error type returned by the invoker
type Error struct {
	Capability models.Capability
	Kind       ErrorKind
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s analysis failed (%s): %v", e.Capability, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can use errors.Is
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInputInvalid:
		return e.Kind == KindInput
	case ErrTransportFailed:
		return e.Kind == KindTransport
	case ErrValidationFailed:
		return e.Kind == KindValidation
	}
	return false
}

// KindOf returns the kind of an invoker error, or "" for other errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
