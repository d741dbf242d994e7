// Package result defines the uniform envelope returned for every ledger operation.
package result

import (
	"stockledger/internal/core/apperror"
)

// Error is the failure part of an envelope.
type Error struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope is {success, data, error}. Exactly one of Data and Error is meaningful.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Fail builds a failed envelope from err.
// Errors outside the apperror taxonomy keep their kind but not their message.
func Fail[T any](err error) Envelope[T] {
	env := Envelope[T]{Error: &Error{Kind: apperror.Kind(err)}}
	if appErr, ok := apperror.AsAppError(err); ok {
		env.Error.Message = appErr.Message
		env.Error.Details = appErr.Details
	} else {
		env.Error.Message = "Internal server error"
	}
	return env
}

// From builds an envelope from an operation's return values.
func From[T any](data T, err error) Envelope[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(data)
}

// Void is the payload of operations that return nothing.
type Void struct{}
