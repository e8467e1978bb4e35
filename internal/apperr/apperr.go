// Package apperr defines the error taxonomy shared across sentryd's
// processing pipeline. Each kind carries its own semantics for whether
// it is fatal, retryable, or merely surfaced through counters — callers
// use errors.As to recover a *Error and inspect its Kind.
package apperr

import "fmt"

// Kind identifies one of the error categories from the processing
// pipeline's error taxonomy. Unknown kinds are a configuration error
// at load time, not a runtime possibility.
type Kind string

const (
	// KindConfig marks malformed account or global configuration.
	// Fatal at startup; never expected mid-session.
	KindConfig Kind = "config"

	// KindAuth marks IMAP credentials rejected by the provider. Fatal
	// for the session; never retried.
	KindAuth Kind = "auth"

	// KindNetwork marks transient connectivity or timeout failures.
	// Retried with exponential backoff up to three attempts per batch.
	KindNetwork Kind = "network"

	// KindProtocol marks an unexpected IMAP response, most commonly a
	// UIDVALIDITY reset. The current folder is restarted; counters
	// already committed are preserved.
	KindProtocol Kind = "protocol"

	// KindClassifier marks a model load failure or a tier-3 timeout.
	// Not fatal — the caller degrades to the prior tier.
	KindClassifier Kind = "classifier"

	// KindPersistence marks a database write failure. The offending
	// row is not committed; processing continues to the next message.
	KindPersistence Kind = "persistence"

	// KindFlagConflict marks a message with both a PROTECT and DELETE
	// flag present. Resolved deterministically in favor of PROTECT.
	KindFlagConflict Kind = "flag_conflict"
)

// Error wraps an underlying error with a Kind from the taxonomy above.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an *Error of the given kind wrapping err, with a
// descriptive message. err may be nil for a standalone error.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

// asError is a small indirection so this package doesn't need to
// import "errors" twice for the same purpose in every caller.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Retryable reports whether an error of this kind should be retried
// by the caller per the propagation policy in the error taxonomy.
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

// Fatal reports whether an error of this kind aborts the current
// session outright rather than degrading gracefully.
func (k Kind) Fatal() bool {
	return k == KindAuth || k == KindConfig
}
