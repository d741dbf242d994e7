package ledger

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
)

// GetItem returns one item visible to p.
func (s *Service) GetItem(ctx context.Context, itemID id.ID, p security.Principal) (*Item, error) {
	if err := requireID(itemID, "itemId"); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := security.ResolveRead(p, item.WarehouseID); err != nil {
		return nil, err
	}
	return item, nil
}

// ListTransactions returns the audit log visible to p, newest first.
func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter, p security.Principal) ([]Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperror.NewValidation("unknown transaction type").WithDetail("type", filter.Type)
	}
	scope, err := security.ResolveRead(p, filter.WarehouseID)
	if err != nil {
		return nil, err
	}
	filter.Limit = clampLimit(filter.Limit)
	return s.logs.ListTransactions(ctx, scope, filter)
}

// GetItemHistory returns the history records of an item visible to p, newest first.
// Records remain readable after the item is deleted.
func (s *Service) GetItemHistory(ctx context.Context, itemID id.ID, limit int, p security.Principal) ([]HistoryRecord, error) {
	if err := requireID(itemID, "itemId"); err != nil {
		return nil, err
	}
	scope, err := security.ResolveRead(p, "")
	if err != nil {
		return nil, err
	}
	return s.logs.ListHistory(ctx, scope, itemID, clampLimit(limit))
}
