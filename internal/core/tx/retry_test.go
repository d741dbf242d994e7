package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

type passthrough struct{ calls int }

func (p *passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

func TestRunWithRetry(t *testing.T) {
	t.Run("retries conflicts until success", func(t *testing.T) {
		m := &passthrough{}
		var retried []int
		policy := RetryPolicy{MaxAttempts: 3, OnRetry: func(_ context.Context, attempt int, _ error) {
			retried = append(retried, attempt)
		}}

		err := RunWithRetry(context.Background(), m, policy, func(ctx context.Context) error {
			if m.calls < 3 {
				return apperror.NewConflict("item", "1")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, m.calls)
		assert.Equal(t, []int{1, 2}, retried)
	})

	t.Run("surfaces conflict after last attempt", func(t *testing.T) {
		m := &passthrough{}
		err := RunWithRetry(context.Background(), m, RetryPolicy{MaxAttempts: 2}, func(ctx context.Context) error {
			return apperror.NewConflict("item", "1")
		})

		assert.True(t, apperror.IsConflict(err))
		assert.Equal(t, 2, m.calls)
	})

	t.Run("does not retry business errors", func(t *testing.T) {
		m := &passthrough{}
		err := RunWithRetry(context.Background(), m, RetryPolicy{MaxAttempts: 5}, func(ctx context.Context) error {
			return apperror.NewInsufficientQuantity("1", 10, 5)
		})

		assert.Equal(t, apperror.CodeInsufficientQuantity, apperror.Kind(err))
		assert.Equal(t, 1, m.calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		m := &passthrough{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := RunWithRetry(ctx, m, RetryPolicy{MaxAttempts: 3}, func(ctx context.Context) error { return nil })

		assert.True(t, errors.Is(err, context.Canceled))
		assert.Zero(t, m.calls)
	})

	t.Run("exposes attempt number to the unit", func(t *testing.T) {
		m := &passthrough{}
		var seen []int
		_ = RunWithRetry(context.Background(), m, RetryPolicy{MaxAttempts: 2}, func(ctx context.Context) error {
			seen = append(seen, Attempt(ctx))
			return apperror.NewConflict("item", "1")
		})

		assert.Equal(t, []int{1, 2}, seen)
		assert.Equal(t, 1, Attempt(context.Background()))
	})
}
