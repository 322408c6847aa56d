package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes surfaced to clients as errorType.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeUsernameTaken = "USERNAME_TAKEN"
	CodeUserNotFound  = "USER_NOT_FOUND"
	CodeWrongPassword = "WRONG_PASSWORD"
	CodeDatabaseQuery = "DATABASE_QUERY_ERROR"
	CodeSystem        = "SYSTEM_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
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

// Status maps the error to an HTTP status code.
// Business failures ride on 200 so clients branch on the envelope code.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeDatabaseQuery, CodeSystem:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}

// Internal reports whether the error is a system failure.
func (e *AppError) Internal() bool {
	return e.Code == CodeDatabaseQuery || e.Code == CodeSystem
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewBusinessError is a rule violation reported with code '0' and a specific errorType.
func NewBusinessError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "too many requests, please slow down",
	}
}

// NewDatabaseError wraps a store failure. The detail is never sent to clients.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Code:    CodeDatabaseQuery,
		Message: "database error, please try again later",
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeSystem,
		Message: "internal server error",
		Err:     err,
	}
}

// AsAppError returns err as an *AppError, wrapping unknown errors as internal ones.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}
