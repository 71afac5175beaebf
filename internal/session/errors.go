package session

import (
	"errors"
	"fmt"

	"relaybot/internal/providers"
)

// Kind classifies every failure a unit of work can surface. No kind is fatal
// to the process; all are scoped to one user's event.
type Kind string

const (
	NotReady         Kind = "not_ready"
	NoCredential     Kind = "no_credential"
	AuthFailure      Kind = "auth_failure"
	TransientFailure Kind = "transient_failure"
	UnknownFailure   Kind = "unknown_failure"
)

var ErrUnavailable = errors.New("no usable credential")

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classifyProviderError(err error) Kind {
	switch providers.KindOf(err) {
	case providers.FailureAuth:
		return AuthFailure
	case providers.FailureTransient:
		return TransientFailure
	default:
		return UnknownFailure
	}
}
