// Package gwerrors defines the machine-readable error kinds the gateway
// surfaces to its callers. Every outcome a caller is expected to branch on
// is one of these kinds; genuine programming errors are not modeled here.
package gwerrors

import (
	"errors"
	"fmt"
)

// Kind identifies the class of failure a caller must branch on.
type Kind string

const (
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamQueryError  Kind = "upstream_query_error"
	KindNotFound            Kind = "not_found"
	KindSyncInProgress      Kind = "sync_in_progress"
	KindValidationError     Kind = "validation_error"
	KindInternalError       Kind = "internal_error"
)

// Error is a typed, wrapped failure carrying a machine-readable Kind.
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

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, gwerrors.UpstreamUnavailable) work against a *Error
// built with the matching Kind, without requiring identical Message/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons; callers never construct these
// directly, they compare against them.
var (
	UpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	UpstreamQueryError  = &Error{Kind: KindUpstreamQueryError}
	NotFound            = &Error{Kind: KindNotFound}
	SyncInProgress      = &Error{Kind: KindSyncInProgress}
	ValidationError     = &Error{Kind: KindValidationError}
	InternalError       = &Error{Kind: KindInternalError}
)

// Wrap builds a concrete *Error of the given kind, wrapping err and
// attaching a human-readable message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Newf builds a concrete *Error of the given kind without an underlying
// cause, formatting the message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of err, walking the Unwrap chain. Returns
// KindInternalError when err carries no *Error in its chain.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternalError
}

// IsKind reports whether err's chain carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
