// ///////////////////////////////////////////////////////////////////////////
//
// # tablediff
//
// Copyright (C) 2023 - 2026, pgEdge (https://www.pgedge.com/)
//
// This software is released under the PostgreSQL License:
// https://opensource.org/license/postgresql
//
// ///////////////////////////////////////////////////////////////////////////

package engine

import "fmt"

// Error taxonomy, spec.md §7. Each kind maps to a CLI exit code in
// internal/clicmd; CancelledError is internal and is never surfaced to a
// caller as a failure.
type ErrorKind int

const (
	KindConfigError ErrorKind = iota
	KindSchemaError
	KindDuplicateKey
	KindTransientBackendError
	KindFatalBackendError
	KindCancelled
	KindLimitReached
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfigError:
		return "ConfigError"
	case KindSchemaError:
		return "SchemaError"
	case KindDuplicateKey:
		return "DuplicateKey"
	case KindTransientBackendError:
		return "TransientBackendError"
	case KindFatalBackendError:
		return "FatalBackendError"
	case KindCancelled:
		return "CancelledError"
	case KindLimitReached:
		return "LimitReached"
	default:
		return "UnknownError"
	}
}

// ExitCode maps an ErrorKind to the stable exit codes of spec.md §6.
func (k ErrorKind) ExitCode() int {
	switch k {
	case KindConfigError, KindSchemaError:
		return 2
	case KindDuplicateKey, KindTransientBackendError, KindFatalBackendError:
		return 3
	case KindLimitReached:
		return 1
	default:
		return 1
	}
}

// Error wraps an underlying cause with its taxonomy kind and, where
// relevant, the offending segment's key range (spec.md §7: "a single
// concise line naming the error kind and the offending segment
// key-range").
type Error struct {
	Kind     ErrorKind
	Segment  string // human-readable key-range description, may be empty
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("%s: %s (segment %s)", e.Kind, e.Message, e.Segment)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, segment string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Segment: segment,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func ConfigError(format string, args ...any) *Error {
	return newErr(KindConfigError, "", nil, format, args...)
}

func SchemaError(format string, args ...any) *Error {
	return newErr(KindSchemaError, "", nil, format, args...)
}

func DuplicateKeyError(segment string) *Error {
	return newErr(KindDuplicateKey, segment, nil, "duplicate key values violate the assumed uniqueness of the key columns")
}

func TransientBackendError(segment string, cause error) *Error {
	return newErr(KindTransientBackendError, segment, cause, "transient backend failure: %v", cause)
}

func FatalBackendError(segment string, cause error) *Error {
	return newErr(KindFatalBackendError, segment, cause, "backend failure: %v", cause)
}

func LimitReachedError() *Error {
	return newErr(KindLimitReached, "", nil, "result limit reached")
}

// CancelledError marks run cancellation (context done, a sibling task
// failed, or the limit was reached); IsCancelled treats it as non-fatal.
func CancelledError() *Error {
	return newErr(KindCancelled, "", nil, "run cancelled")
}

// IsCancelled reports whether err represents run cancellation, which is
// never a user-visible failure.
func IsCancelled(err error) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	}
	return e != nil && e.Kind == KindCancelled
}
