package providers

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies an adapter error so callers never have to match on
// message strings or provider-specific status codes.
type FailureKind string

const (
	FailureAuth      FailureKind = "auth"
	FailureTransient FailureKind = "transient"
	FailureUnknown   FailureKind = "unknown"
)

type Error struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s failure (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func AuthError(status int, err error) *Error {
	return &Error{Kind: FailureAuth, Status: status, Err: err}
}

func TransientError(status int, err error) *Error {
	return &Error{Kind: FailureTransient, Status: status, Err: err}
}

func UnknownError(err error) *Error {
	return &Error{Kind: FailureUnknown, Err: err}
}

// StatusError classifies a non-2xx HTTP status the way all HTTP adapters do:
// 401/403 mean the credential was rejected, 429 and 5xx are retryable.
func StatusError(status int) *Error {
	err := fmt.Errorf("provider status %d", status)
	switch {
	case status == 401 || status == 403:
		return AuthError(status, err)
	case status == 429 || status >= 500:
		return TransientError(status, err)
	default:
		return UnknownError(err)
	}
}

// KindOf extracts the failure class from an adapter error. Context timeouts
// count as transient regardless of how deep they are wrapped.
func KindOf(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailureUnknown
}
