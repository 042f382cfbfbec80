package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a mailsort error code.
type ErrorCode string

const (
	ErrValidation          ErrorCode = "VALIDATION"           // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrConsentRequired     ErrorCode = "CONSENT_REQUIRED"     // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrBusy                ErrorCode = "BUSY"                 // 409
	ErrLanguageUnavailable ErrorCode = "LANGUAGE_UNAVAILABLE" // 409
	ErrRejected            ErrorCode = "REJECTED"             // 422
	ErrCanceled            ErrorCode = "CANCELED"             // 499
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrTransport           ErrorCode = "TRANSPORT"            // 502
	ErrTimeout             ErrorCode = "TIMEOUT"              // 504
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidation creates a 400 error for input that cannot be submitted.
func NewValidation(msg string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewConsentRequired creates a 400 error when an action needs explicit confirmation.
func NewConsentRequired(msg string) *AppError {
	return &AppError{
		Code:    ErrConsentRequired,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]any{"identifier": what},
	}
}

// NewBusy creates a 409 error when a submission is already in flight.
func NewBusy() *AppError {
	return &AppError{
		Code:    ErrBusy,
		Status:  409,
		Message: "a submission is already in progress",
	}
}

// NewLanguageUnavailable creates a 409 notice when a reply language has no text.
// shown is the language left on screen ("" when nothing changed).
func NewLanguageUnavailable(requested, shown string) *AppError {
	msg := fmt.Sprintf("no %s version of this reply", requested)
	if shown != "" {
		msg = fmt.Sprintf("%s (showing %s)", msg, shown)
	}
	return &AppError{
		Code:    ErrLanguageUnavailable,
		Status:  409,
		Message: msg,
		Details: map[string]any{"requested": requested, "shown": shown},
	}
}

// NewRejected creates a 422 error carrying the classification service's message verbatim.
func NewRejected(serverMessage string, status int) *AppError {
	return &AppError{
		Code:    ErrRejected,
		Status:  422,
		Message: serverMessage,
		Details: map[string]any{"http_status": status},
	}
}

// NewCanceled creates a 499 error when a submission was abandoned by the caller.
func NewCanceled() *AppError {
	return &AppError{
		Code:    ErrCanceled,
		Status:  499,
		Message: "submission canceled",
	}
}

// NewTransport creates a 502 error for network or response parse failures.
func NewTransport(msg string, cause error) *AppError {
	e := &AppError{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
	}
	if cause != nil {
		e.Details = map[string]any{"cause": cause.Error()}
	}
	return e
}

// NewTimeout creates a 504 error when the request deadline elapsed.
func NewTimeout() *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Status:  504,
		Message: "timed out processing the email, try again",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var aErr *AppError
	if stderrors.As(err, &aErr) {
		return aErr.Code == code
	}
	return false
}

// As returns the AppError in err's chain, or wraps err as INTERNAL.
func As(err error) *AppError {
	var aErr *AppError
	if stderrors.As(err, &aErr) {
		return aErr
	}
	return NewInternal(err)
}
