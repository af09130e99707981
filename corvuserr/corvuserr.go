// Package corvuserr defines the error taxonomy surfaced by the core. It
// replaces the teacher's single ErrRecordNotFound sentinel (db/deployments.go)
// with a small typed-error shape, grounded on original_source's
// HttpResponseError{msg, status} -- the reference implementation maps every
// domain error to an HTTP status at the same boundary, just with ntex's enum
// instead of a struct tag.
package corvuserr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories the HTTP layer must be able to map
// to a status code. Every non-best-effort operation that can fail returns
// either nil or a *Error with one of these kinds.
type Kind string

const (
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	BadInput         Kind = "bad_input"
	ImageMissing     Kind = "image_missing"
	EngineUnavailable Kind = "engine_unavailable"
	StoreUnavailable Kind = "store_unavailable"
	TemplateRender   Kind = "template_render"
	FilesystemError  Kind = "filesystem_error"
	Internal         Kind = "internal"
)

// Error is the one exported error type used across store, engine, template,
// sidecar, and reconciler. Msg is safe to send to a client verbatim; Cause,
// when present, is only ever logged server-side, never serialized.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no underlying cause, for validation-style
// failures raised directly by this code (e.g. a malformed DNS entry).
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a Kind and message to an underlying error from a dependency
// (the engine SDK, database/sql, os). Returns nil if err is nil, so callers
// can write `return corvuserr.Wrap(Internal, "...", err)` unconditionally
// right after a call site without an extra nil check.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Cause: err}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, defaulting
// to Internal otherwise. Used at the HTTP boundary to pick a status code
// without every handler needing to know the corvuserr.Error shape.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return Internal
}
