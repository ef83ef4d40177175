package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Kind categorizes storage failures so callers can branch on the class of
// failure instead of matching message text.
type Kind int

const (
	// KindUnknown is any failure the store cannot classify.
	KindUnknown Kind = iota

	// KindContention is a transient failure caused by concurrent access
	// (lock waits, serialization conflicts, pool exhaustion, statement
	// timeouts). Expected to succeed on retry.
	KindContention

	// KindConflict is a uniqueness violation, e.g. two concurrent
	// signups racing on the same email.
	KindConflict
)

// Error tags an underlying driver error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or KindUnknown if it carries no tag.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsContention reports whether err is a retryable contention failure.
func IsContention(err error) bool {
	return KindOf(err) == KindContention
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// Postgres error codes the store classifies as contention.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014" // raised by statement_timeout
	codeTooManyConnections   = "53300"
	codeUniqueViolation      = "23505"
)

// classify wraps driver errors with a structured Kind. Errors that match no
// known class pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeSerializationFailure, codeDeadlockDetected,
			codeLockNotAvailable, codeQueryCanceled, codeTooManyConnections:
			return &Error{Kind: KindContention, Err: err}
		case codeUniqueViolation:
			return &Error{Kind: KindConflict, Err: err}
		}
		return err
	}

	// Lost connections and attempt deadlines behave like contention: the
	// engine or pool could not serve the request in time.
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindContention, Err: err}
	}

	return err
}
