package http

import (
	"fmt"
	"net/http"
)

const (
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeValidation   = "ERR_VALIDATION"
	CodeNotFound     = "ERR_NOT_FOUND"
	CodeUnsupported  = "ERR_UNSUPPORTED_MEDIA_TYPE"
	CodeInternal     = "ERR_INTERNAL"
	CodeUnavailable  = "ERR_UNAVAILABLE"
	CodeNotAllowed   = "ERR_METHOD_NOT_ALLOWED"
	CodeUnauthorized = "ERR_UNAUTHORIZED"
)

// AppError is an application error carrying the HTTP status it maps to.
// Only Message reaches the client.
type AppError struct {
	Code    string
	Message string
	Field   string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// ValidationFailed is a 400 naming the offending field.
func ValidationFailed(field, message string) *AppError {
	return NewAppError(CodeValidation, field, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}

func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}

func UnavailableError(message string) *AppError {
	return NewAppError(CodeUnavailable, "", message, http.StatusServiceUnavailable)
}
