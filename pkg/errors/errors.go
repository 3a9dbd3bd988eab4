package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type returned across the gateway. Code identifies
// the failure kind so callers and tests can discriminate causes without
// string-matching messages.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithMessage returns a copy carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    message,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

// WithMessagef is WithMessage with fmt.Sprintf formatting.
func (e *AppError) WithMessagef(format string, args ...any) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError returns a copy wrapping an underlying error. The wrapped error's
// text becomes the message so the caller sees the provider's reason.
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    err.Error(),
		HTTPStatus: e.HTTPStatus,
		Err:        err,
	}
}

// New creates an AppError with an arbitrary code and status.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Failure kinds. One sentinel per cause the gateway distinguishes:
// local input validation, credential rejection, unresolvable account,
// deployment that never completes, transport/synchronization failure,
// and a provider call that is reachable but refused.
var (
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrAuthentication = &AppError{
		Code:       "AUTHENTICATION_ERROR",
		Message:    "Invalid or missing API token",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrProvisioning = &AppError{
		Code:       "PROVISIONING_ERROR",
		Message:    "Account deployment did not complete",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrConnection = &AppError{
		Code:       "CONNECTION_ERROR",
		Message:    "Failed to establish a synchronized connection",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderOperation = &AppError{
		Code:       "PROVIDER_OPERATION_ERROR",
		Message:    "Provider rejected the operation",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
	}
)
