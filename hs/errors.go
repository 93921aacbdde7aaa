package hs

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrorKind classifies protocol client errors
type ErrorKind uint8

const (
	// KindConnection signals that the channel could not be established or
	// died mid-exchange. Fatal at bootstrap.
	KindConnection ErrorKind = iota + 1
	// KindHandleOpen signals that the server (or the local handle registry)
	// rejected an index-open request. Fatal at bootstrap.
	KindHandleOpen
	// KindProtocol signals a non-zero status not attributable to an
	// expected miss, or a malformed response line.
	KindProtocol
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindHandleOpen:
		return "HandleOpenError"
	case KindProtocol:
		return "ProtocolError"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by all Client methods. It wraps the
// error kind, a message and - where one exists - the underlying cause.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hs %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("hs %s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// newError creates a new Error with the given kind and formatted message.
func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError creates a new Error with the given kind, message and cause.
func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
