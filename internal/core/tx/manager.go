// Package tx defines the atomic unit of work used by the ledger.
// Domain code depends on these interfaces; the postgres and in-memory stores
// implement them.
package tx

import (
	"context"
)

// Manager runs a function as one atomic unit.
//
// The unit travels in ctx: repositories called with that ctx read and write
// through it. If fn returns an error every write is discarded; otherwise all
// writes are committed together. A concurrent write to a record the unit read
// makes the commit fail with an apperror Conflict.
//
// Nested calls reuse the existing unit from context.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Reader runs queries in a read-only unit. Writes inside the unit fail.
type Reader interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager is a Manager that also serves read-only units.
type ReadOnlyManager interface {
	Manager
	Reader
}

// ReadOnly runs fn through r, or directly when r is nil.
func ReadOnly(ctx context.Context, r Reader, fn func(ctx context.Context) error) error {
	if r == nil {
		return fn(ctx)
	}
	return r.ReadOnly(ctx, fn)
}
