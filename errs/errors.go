// Package errs defines the error type shared by every storage backend and
// layer. Errors carry a kind, a human message, ordered context pairs and an
// optional wrapped source; they are never mutated after construction, only
// wrapped with more context as they travel outward.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into one of the canonical failure modes a caller
// can react to.
type Kind string

const (
	// KindObjectNotFound means the object addressed by the path does not exist.
	KindObjectNotFound Kind = "ObjectNotFound"
	// KindConfigInvalid means the backend was built from malformed or
	// incomplete configuration. Always permanent.
	KindConfigInvalid Kind = "BackendConfigInvalid"
	// KindUnsupported means the operation is outside the backend's declared
	// capability set. Always permanent.
	KindUnsupported Kind = "Unsupported"
	// KindRequestInvalid means the operation arguments could not be turned
	// into a valid request (bad range, bad part number, unbuildable URL).
	KindRequestInvalid Kind = "RequestInvalid"
	// KindUnexpected is the catch-all for backend-internal faults.
	KindUnexpected Kind = "Unexpected"
)

type contextPair struct {
	key   string
	value string
}

// Error is the typed error returned by all storage operations.
type Error struct {
	kind      Kind
	message   string
	context   []contextPair
	source    error
	temporary bool
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// WithContext returns a copy of e with one more context pair appended.
// Context is ordered; the earliest pair was attached closest to the fault.
func (e *Error) WithContext(key, value string) *Error {
	c := e.clone()
	c.context = append(c.context, contextPair{key: key, value: value})
	return c
}

// WithSource returns a copy of e wrapping the given source error.
func (e *Error) WithSource(src error) *Error {
	c := e.clone()
	c.source = src
	return c
}

// Temporary returns a copy of e flagged as retryable.
func (e *Error) Temporary() *Error {
	c := e.clone()
	c.temporary = true
	return c
}

// Permanent returns a copy of e flagged as non-retryable.
func (e *Error) Permanent() *Error {
	c := e.clone()
	c.temporary = false
	return c
}

func (e *Error) clone() *Error {
	c := *e
	c.context = make([]contextPair, len(e.context), len(e.context)+1)
	copy(c.context, e.context)
	return &c
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// IsTemporary reports whether a retry-capable layer may retry this error.
// Unsupported and config errors are permanent regardless of the flag.
func (e *Error) IsTemporary() bool {
	if e.kind == KindUnsupported || e.kind == KindConfigInvalid {
		return false
	}
	return e.temporary
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.kind))
	sb.WriteString(": ")
	sb.WriteString(e.message)
	if len(e.context) > 0 {
		sb.WriteString(" {")
		for i, p := range e.context {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.key)
			sb.WriteString("=")
			sb.WriteString(p.value)
		}
		sb.WriteString("}")
	}
	if e.source != nil {
		sb.WriteString(": ")
		sb.WriteString(e.source.Error())
	}
	return sb.String()
}

// Unwrap exposes the source chain to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.source }

// Is matches two Errors by kind so callers can probe with a bare
// errs.New(kind, "") sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == t.kind
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// KindUnexpected otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnexpected
}

// IsObjectNotFound reports whether err is an ObjectNotFound error.
func IsObjectNotFound(err error) bool {
	return KindOf(err) == KindObjectNotFound
}

// IsUnsupported reports whether err is an Unsupported error.
func IsUnsupported(err error) bool {
	return KindOf(err) == KindUnsupported
}

// IsTemporary reports whether err may be retried.
func IsTemporary(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsTemporary()
	}
	return false
}
