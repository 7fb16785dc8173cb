// Package dberrors defines the error kinds the storage core raises, per
// spec.md §7. Each kind is a distinct type so callers can discriminate
// with errors.As, and every constructor attaches a stack trace with
// github.com/pkg/errors. TransactionAborted and DbError can also wrap an
// underlying cause.
package dberrors

import "github.com/pkg/errors"

// TransactionAborted signals a lock-acquire timeout, an interrupted wait,
// or an operator's explicit abort request. The caller is expected to
// invoke transaction_complete(commit=false).
type TransactionAborted struct {
	Msg   string
	Cause error
}

func (e *TransactionAborted) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *TransactionAborted) Unwrap() error { return e.Cause }

// NewTransactionAborted builds a TransactionAborted with a stack trace
// attached at the call site.
func NewTransactionAborted(msg string) error {
	return errors.WithStack(&TransactionAborted{Msg: msg})
}

// WrapTransactionAborted wraps cause as a TransactionAborted.
func WrapTransactionAborted(cause error, msg string) error {
	return errors.WithStack(&TransactionAborted{Msg: msg, Cause: cause})
}

// DbError is a programming or resource error: no clean eviction victim,
// releasing an unheld lock, negative lock counters, schema mismatch on
// insert, an invalid page number, an I/O failure during page read/write.
type DbError struct {
	Msg   string
	Cause error
}

func (e *DbError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *DbError) Unwrap() error { return e.Cause }

// NewDbError builds a DbError with a stack trace attached at the call site.
func NewDbError(msg string) error {
	return errors.WithStack(&DbError{Msg: msg})
}

// WrapDbError wraps cause as a DbError.
func WrapDbError(cause error, msg string) error {
	return errors.WithStack(&DbError{Msg: msg, Cause: cause})
}

// NoSuchElementError is a catalog lookup miss, a field-name lookup miss,
// or an invalid field index.
type NoSuchElementError struct {
	Msg string
}

func (e *NoSuchElementError) Error() string { return e.Msg }

// NewNoSuchElement builds a NoSuchElementError with a stack trace.
func NewNoSuchElement(msg string) error {
	return errors.WithStack(&NoSuchElementError{Msg: msg})
}

// IllegalArgumentError is schema construction with no fields, tuple
// construction whose fields do not match the schema, or a string
// aggregator constructed with a non-COUNT op.
type IllegalArgumentError struct {
	Msg string
}

func (e *IllegalArgumentError) Error() string { return e.Msg }

// NewIllegalArgument builds an IllegalArgumentError with a stack trace.
func NewIllegalArgument(msg string) error {
	return errors.WithStack(&IllegalArgumentError{Msg: msg})
}
