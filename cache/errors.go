package cache

import "fmt"

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Verb executed successfully.
	RetCSchemaError                         // 1: DDL/DML failure on the relational boundary.
	RetCProtocolError                       // 2: Indexed-access operation failed.
	RetCPartialStore                        // 3: Store batch: delete applied, insert failed, entry left absent.
	RetCUnsupportedOperation                // 4: Verb is not supported by this driver.
	RetCClosed                              // 5: Driver is not ready (bootstrap failed or Close was called).
)

// String returns the string representation of a RetCode.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCSchemaError:
		return "SchemaError"
	case RetCProtocolError:
		return "ProtocolError"
	case RetCPartialStore:
		return "PartialStore"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by all Driver methods. It wraps a
// return code, a message and - for protocol and schema failures - the
// underlying cause.
type Error struct {
	Code  RetCode
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache %s: %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("cache %s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// wrapError creates a new Error with the given code, message and cause.
func wrapError(code RetCode, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the return code of err, or RetCSuccess if err is nil and
// RetCProtocolError if err is not a *cache.Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return RetCProtocolError
}
