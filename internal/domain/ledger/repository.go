package ledger

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
)

// ItemRepository persists items.
//
// Methods called with a ctx carrying an atomic unit read and write through it.
// Reads made for update take part in the unit's conflict detection: if another
// unit changes or creates the row before commit, the commit fails with Conflict.
type ItemRepository interface {
	// GetByID returns the item or a NotFound error.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetForUpdate returns the item and registers it for conflict detection.
	GetForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// FindByKey returns the item with the business key, or NotFound.
	// An absent key is registered too, so a concurrent create is detected.
	FindByKey(ctx context.Context, key BusinessKey) (*Item, error)

	// Create inserts a new item. A business key clash is reported as Conflict.
	Create(ctx context.Context, item *Item) error

	// Update writes item if its Version is still current and bumps Version.
	Update(ctx context.Context, item *Item) error

	// Delete removes the item if version is still current.
	Delete(ctx context.Context, itemID id.ID, version int) error
}

// LogRepository appends and reads the audit trail.
type LogRepository interface {
	AppendTransaction(ctx context.Context, t *Transaction) error
	AppendHistory(ctx context.Context, h *HistoryRecord) error

	// ListTransactions returns scope-filtered transactions, newest first.
	ListTransactions(ctx context.Context, scope security.Scope, filter TransactionFilter) ([]Transaction, error)

	// ListHistory returns scope-filtered history of one item, newest first.
	ListHistory(ctx context.Context, scope security.Scope, itemID id.ID, limit int) ([]HistoryRecord, error)
}

// EventPublisher records a committed transaction for downstream consumers.
// It is called inside the atomic unit, so the event commits with the write.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, t *Transaction) error
}

// Invalidator drops derived data (stats) for warehouses after a commit.
type Invalidator interface {
	Invalidate(ctx context.Context, warehouseIDs ...string) error
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	ItemID      *id.ID
	WarehouseID string
	Type        TransactionType
	Limit       int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
