// Package diag defines the error kinds raised while turning an instrument
// export into classified results, and maps them onto process exit codes.
//
// Every data error is fatal for the file being processed. Callers use
// errors.Is against the sentinels below to decide whether to skip a file,
// retry it, or abort; errors.As yields the structured *Error with the
// offending identifier (well position, column name, channel code).
package diag

import (
	"errors"
	"fmt"
)

// Kind is a minimal error category.
type Kind string

const (
	KindMalformedFile   Kind = "malformed_file"
	KindChannelMismatch Kind = "channel_mismatch"
	KindDuplicateColumn Kind = "duplicate_column"
	KindNumericCoercion Kind = "numeric_coercion"
	KindIncompleteJoin  Kind = "incomplete_join"
	KindMissingField    Kind = "missing_field"

	// Environment / caller-level kinds.
	KindFileLocked Kind = "file_locked"
	KindCancelled  Kind = "cancelled"
	KindConfig     Kind = "config"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its Kind.
var (
	ErrMalformedFile   = &Error{Kind: KindMalformedFile}
	ErrChannelMismatch = &Error{Kind: KindChannelMismatch}
	ErrDuplicateColumn = &Error{Kind: KindDuplicateColumn}
	ErrNumericCoercion = &Error{Kind: KindNumericCoercion}
	ErrIncompleteJoin  = &Error{Kind: KindIncompleteJoin}
	ErrMissingField    = &Error{Kind: KindMissingField}
	ErrFileLocked      = &Error{Kind: KindFileLocked}
	ErrCancelled       = &Error{Kind: KindCancelled}
	ErrConfig          = &Error{Kind: KindConfig}
)

// Error is the structured error surfaced to callers.
type Error struct {
	Kind   Kind
	Ident  string // offending well position, column name, channel code, ...
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Ident != "" {
		msg += fmt.Sprintf(" [%s]", e.Ident)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Ident == "" || t.Ident == e.Ident)
}

// New builds a structured error.
func New(kind Kind, ident, format string, a ...any) *Error {
	return &Error{Kind: kind, Ident: ident, Detail: fmt.Sprintf(format, a...)}
}

// Wrap attaches kind/ident to an underlying cause.
func Wrap(kind Kind, ident string, err error) *Error {
	return &Error{Kind: kind, Ident: ident, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsDataError reports whether err is one of the input-format kinds.
func IsDataError(err error) bool {
	switch KindOf(err) {
	case KindMalformedFile, KindChannelMismatch, KindDuplicateColumn,
		KindNumericCoercion, KindIncompleteJoin, KindMissingField:
		return true
	}
	return false
}
