package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for status mapping and errors.Is.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindGateway           Kind = "gateway"
	KindSignatureMismatch Kind = "signature_mismatch"
	KindInternal          Kind = "internal"
)

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the package
// sentinels work with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new Error
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is checks. Never mutate these; use the constructors.
var (
	ErrValidation        = New(KindValidation, http.StatusBadRequest, "Validation error", nil)
	ErrGateway           = New(KindGateway, http.StatusInternalServerError, "Payment gateway error", nil)
	ErrSignatureMismatch = New(KindSignatureMismatch, http.StatusBadRequest, "Invalid signature", nil)
	ErrInternal          = New(KindInternal, http.StatusInternalServerError, "Internal server error", nil)
)

// Validation reports missing or malformed client input.
func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message, nil)
}

// Gateway wraps a failed call to the payment gateway. The message is the
// gateway's own, passed through to the caller.
func Gateway(err error) *Error {
	msg := "payment gateway request failed"
	if err != nil {
		msg = err.Error()
	}
	return New(KindGateway, http.StatusInternalServerError, msg, err)
}

// SignatureMismatch is the single rejection path for forged or altered
// payment callbacks.
func SignatureMismatch() *Error {
	return New(KindSignatureMismatch, http.StatusBadRequest, "Payment verification failed", nil)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return New(KindInternal, ErrInternal.Code, ErrInternal.Message, err)
}

// From returns err as an *Error, wrapping anything else as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// StatusCode maps any error onto an HTTP status.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return From(err).Code
}
