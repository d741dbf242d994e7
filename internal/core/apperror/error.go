// Package apperror provides structured error handling for the ledger.
// Every expected failure of a ledger operation is an AppError carrying a
// machine-readable code, a human-readable message and a suggested HTTP status.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Each code is one failure kind surfaced to callers.
const (
	// Infrastructure errors (5xx)
	CodeInternal           = "INTERNAL_ERROR"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

	// Validation errors (400)
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidSearchTerm = "INVALID_SEARCH_TERM"

	// Business rule violations (422)
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeWrongWarehouse       = "WRONG_WAREHOUSE"
	CodeInvalidQuantity      = "INVALID_QUANTITY"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Concurrent write detected at commit (409)
	CodeConflict = "CONFLICT"
)

// AppError is the standard error type for the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidSearchTerm is returned for search terms too short after normalization.
func NewInvalidSearchTerm(term string, minLength int) *AppError {
	return &AppError{
		Code:       CodeInvalidSearchTerm,
		Message:    fmt.Sprintf("search term must be at least %d characters", minLength),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"term": term},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInsufficientQuantity creates a stock shortage error
func NewInsufficientQuantity(itemID any, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientQuantity,
		Message:    "Insufficient quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewWrongWarehouse is returned when an item is not stored at the warehouse named by the caller.
func NewWrongWarehouse(itemID any, expected, actual string) *AppError {
	return &AppError{
		Code:       CodeWrongWarehouse,
		Message:    "Item does not belong to the source warehouse",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"expected":  expected,
			"warehouse": actual,
		},
	}
}

// NewInvalidQuantity creates an error for a non-positive operation quantity.
func NewInvalidQuantity(quantity int64) *AppError {
	return &AppError{
		Code:       CodeInvalidQuantity,
		Message:    "Quantity must be greater than zero",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"quantity": quantity},
	}
}

// NewConflict creates an optimistic locking error (409). Conflicts are retryable.
func NewConflict(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    "Record was modified concurrently. Please retry.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewStorageUnavailable wraps a transient infrastructure failure (503).
func NewStorageUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStorageUnavailable,
		Message:    "Storage is temporarily unavailable. Please retry later.",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Kind returns the failure code for any error.
// Errors outside the taxonomy are reported as CodeInternal, except context
// deadlines which are reported as CodeStorageUnavailable.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeStorageUnavailable
	}
	return CodeInternal
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	switch Kind(err) {
	case CodeConflict, CodeStorageUnavailable:
		return true
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return Kind(err) == CodeNotFound
}

// IsConflict checks if error is CodeConflict
func IsConflict(err error) bool {
	return Kind(err) == CodeConflict
}
