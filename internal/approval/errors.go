package approval

import (
	"errors"
	"fmt"
)

// Code classifies an engine failure.
type Code string

// Error codes surfaced to callers.
const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeAuthorizationDenied Code = "AUTHORIZATION_DENIED"
	CodeConflict            Code = "CONFLICT"
	CodeIllegalState        Code = "ILLEGAL_STATE"
)

// Error is a classified engine error. Two errors match under errors.Is when
// their codes are equal, so callers can test against the sentinels below.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Sentinels for errors.Is.
var (
	ErrValidation          = &Error{Code: CodeValidation}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrAuthorizationDenied = &Error{Code: CodeAuthorizationDenied}
	ErrConflict            = &Error{Code: CodeConflict}
	ErrIllegalState        = &Error{Code: CodeIllegalState}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may retry the operation.
func (e *Error) Retryable() bool {
	return e.Code == CodeConflict
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validationf returns a VALIDATION_ERROR.
func Validationf(format string, args ...any) error {
	return newError(CodeValidation, format, args...)
}

// NotFoundf returns a NOT_FOUND error.
func NotFoundf(format string, args ...any) error {
	return newError(CodeNotFound, format, args...)
}

// Deniedf returns an AUTHORIZATION_DENIED error.
func Deniedf(format string, args ...any) error {
	return newError(CodeAuthorizationDenied, format, args...)
}

// Conflictf returns a CONFLICT error.
func Conflictf(format string, args ...any) error {
	return newError(CodeConflict, format, args...)
}

// IllegalStatef returns an ILLEGAL_STATE error.
func IllegalStatef(format string, args ...any) error {
	return newError(CodeIllegalState, format, args...)
}

// Wrap classifies err under code, keeping it as the cause.
func Wrap(code Code, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when err is unclassified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
