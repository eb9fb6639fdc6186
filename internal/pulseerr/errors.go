// Package pulseerr defines the error taxonomy shared across the ingestion
// pipeline: AuthError, ValidationError, TransportError, StorageError,
// LockTimeout, and Internal. Callers branch on kind with errors.Is/As to
// decide whether to surface, log-and-neutralize, or swallow.
package pulseerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for handling-policy purposes.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindStorage    Kind = "storage"
	KindLockTimeout Kind = "lock_timeout"
	KindInternal   Kind = "internal"
)

// Error wraps an underlying cause with a Kind and optional offending field
// names (used by ValidationError to report which keys were missing).
type Error struct {
	Kind   Kind
	Msg    string
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, pulseerr.KindX)-style checks by comparing kind
// when the target is itself an *Error with only a Kind set.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newErr(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Auth(msg string, err error) *Error { return newErr(KindAuth, msg, err) }

func Validation(msg string, fields []string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

func Transport(msg string, err error) *Error { return newErr(KindTransport, msg, err) }

func Storage(msg string, err error) *Error { return newErr(KindStorage, msg, err) }

func LockTimeout(msg string, err error) *Error { return newErr(KindLockTimeout, msg, err) }

func Internal(msg string, err error) *Error { return newErr(KindInternal, msg, err) }

// IsKind reports whether err (or any error it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
