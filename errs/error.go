package errs

import (
	"errors"
	"fmt"
)

// Application error codes. They map to HTTP status codes in ReturnError.
const (
	// ECONFLICT is returned when a unique value (like an email address) is already taken.
	ECONFLICT = "conflict"
	// EINTERNAL is returned for anything unexpected. Its message is never shown to clients.
	EINTERNAL = "internal"
	// EINVALID is returned when submitted data fails validation.
	EINVALID = "invalid"
	// ENOTFOUND is returned when a referenced user, post or comment does not exist.
	ENOTFOUND = "not_found"
	// EUNAUTHORIZED is returned when the request carries no valid session.
	EUNAUTHORIZED = "unauthorized"
	// EUNAVAILABLE is returned when the underlying store cannot be reached or fails.
	EUNAVAILABLE = "unavailable"
)

// Error represents an application-specific error. Code is machine readable,
// Message is safe to show to the client. Err optionally holds the cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause, so errors.Is works through an *Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper for returning an *Error with the given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns an *Error with the given code that keeps err as its cause.
func Wrap(code string, err error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// ErrorCode returns the code of the first *Error in err's chain.
// It returns EINTERNAL for any other error, and "" for nil.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the client-facing message of the first *Error in err's chain.
// Other errors get a generic message so that internals don't leak.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Is reports whether err carries the given application error code.
func Is(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
