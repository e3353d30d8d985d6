package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every error returned across a service boundary wraps exactly one of these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrProvider   = errors.New("travel-time provider error")
	ErrInternal   = errors.New("internal error")
)

// Stable machine-readable reasons.
const (
	ReasonValidation = "validation_error"
	ReasonNotFound   = "not_found"
	ReasonProvider   = "provider_error"
	ReasonTimeout    = "timeout"
	ReasonInternal   = "internal_error"
)

// Error carries a kind, a stable reason and a human message.
type Error struct {
	Kind    error
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Reason: ReasonValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Reason: ReasonNotFound, Message: fmt.Sprintf(format, args...)}
}

func ProviderErr(err error, format string, args ...any) *Error {
	return &Error{Kind: ErrProvider, Reason: ReasonProvider, Message: fmt.Sprintf(format, args...), Err: err}
}

// TimeoutErr reports a synchronous call that ran out of time.
func TimeoutErr(err error, format string, args ...any) *Error {
	return &Error{Kind: context.DeadlineExceeded, Reason: ReasonTimeout, Message: fmt.Sprintf(format, args...), Err: err}
}

func Internalf(err error, format string, args ...any) *Error {
	return &Error{Kind: ErrInternal, Reason: ReasonInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// ReasonOf maps any error onto the stable reason taxonomy.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	switch {
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrProvider):
		return ReasonProvider
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonInternal
	}
}
