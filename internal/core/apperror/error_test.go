package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error", NewInvalidQuantity(0), CodeInvalidQuantity},
		{"wrapped app error", fmt.Errorf("dispatch: %w", NewConflict("item", "1")), CodeConflict},
		{"deadline", context.DeadlineExceeded, CodeStorageUnavailable},
		{"plain error", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(NewConflict("item", 1)))
	assert.True(t, Retryable(NewStorageUnavailable(errors.New("conn refused"))))
	assert.False(t, Retryable(NewInsufficientQuantity("1", 30, 26)))
	assert.False(t, Retryable(NewForbidden("no")))
	assert.False(t, Retryable(nil))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewStorageUnavailable(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by")
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("name is required").WithDetail("field", "name")
	assert.Equal(t, "name", err.Details["field"])
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("x")))
}
