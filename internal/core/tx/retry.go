package tx

import (
	"context"

	"stockledger/internal/core/apperror"
)

// RetryPolicy bounds transparent re-execution of a unit that lost a write race.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions, including the first.
	MaxAttempts int
	// OnRetry is called before each re-execution. Optional.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// RunWithRetry runs fn through m, re-running it from scratch while it fails
// with a Conflict and attempts remain. fn must re-read everything it depends on.
func RunWithRetry(ctx context.Context, m Manager, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(policy.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		err = m.RunInTransaction(withAttempt(ctx, attempt), fn)
		if err == nil || !apperror.IsConflict(err) {
			return err
		}
		if attempt < attempts && policy.OnRetry != nil {
			policy.OnRetry(ctx, attempt, err)
		}
	}
	return err
}

type attemptKey struct{}

func withAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// Attempt returns the 1-based execution number of the unit running in ctx.
func Attempt(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}
