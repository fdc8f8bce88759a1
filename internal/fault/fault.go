// Package fault classifies errors from external services so the
// dispatch layer can decide what to retry and the engine can decide
// what terminates a run.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidRequest means the inbound payload failed validation.
	// Rejected before any external call; never retried.
	InvalidRequest Kind = "InvalidRequest"
	// Auth means the remote rejected our credentials. Never retried;
	// surfaced verbatim to the operator.
	Auth Kind = "AuthError"
	// NotFound means the referenced remote entity does not exist.
	NotFound Kind = "NotFound"
	// RateLimited means the remote throttled the call. Retried.
	RateLimited Kind = "RateLimited"
	// TransientNetwork means a transport-level failure. Retried.
	TransientNetwork Kind = "TransientNetworkError"
	// InvalidResponse means generated content failed schema
	// validation. Never retried.
	InvalidResponse Kind = "InvalidResponse"
	// UserInputTimeout means a form suspension expired. Run-level.
	UserInputTimeout Kind = "UserInputTimeout"
	// Cancelled means the run was cancelled by the user.
	Cancelled Kind = "Cancelled"
	// Internal is the fallback for unclassified failures.
	Internal Kind = "InternalError"
)

// Fault is an error carrying a Kind.
type Fault struct {
	kind Kind
	err  error
}

// New creates a Fault with the given kind and message.
func New(kind Kind, msg string) *Fault {
	return &Fault{kind: kind, err: errors.New(msg)}
}

// Errorf creates a Fault with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Fault {
	return &Fault{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap wraps an existing error with a kind. Returns nil if err is nil.
func Wrap(kind Kind, err error) *Fault {
	if err == nil {
		return nil
	}
	return &Fault{kind: kind, err: err}
}

// Error implements the error interface as "Kind: cause".
func (f *Fault) Error() string {
	return string(f.kind) + ": " + f.err.Error()
}

// Unwrap returns the wrapped cause.
func (f *Fault) Unwrap() error {
	return f.err
}

// Kind returns the classification.
func (f *Fault) Kind() Kind {
	return f.kind
}

// KindOf returns the Kind of err, walking the wrap chain. Errors that
// carry no Fault classify as Internal.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return Internal
}

// Retryable reports whether err is a transient condition worth
// retrying. Only rate limiting and transport failures qualify;
// everything else is a configuration or input problem.
func Retryable(err error) bool {
	switch KindOf(err) {
	case RateLimited, TransientNetwork:
		return true
	default:
		return false
	}
}
