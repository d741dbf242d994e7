package ledger

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/pkg/logger"
)

// DeleteItem hard-deletes an item. A DELETE transaction carrying the negative
// of the item's current stock is appended first, in the same unit.
func (s *Service) DeleteItem(ctx context.Context, itemID id.ID, actorID string, p security.Principal) error {
	if err := requireID(itemID, "itemId"); err != nil {
		return err
	}

	var warehouseID string
	err := s.atomically(ctx, "delete", func(ctx context.Context) error {
		at := s.now().UTC()
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if err := security.RequireWrite(p, security.CapabilityDelete, item.WarehouseID); err != nil {
			return err
		}
		warehouseID = item.WarehouseID

		before := snapshotOf(item)
		t := &Transaction{
			ID:                id.New(),
			Type:              TransactionDelete,
			ItemID:            item.ID,
			WarehouseID:       item.WarehouseID,
			ItemName:          item.Name,
			ItemCode:          item.Code,
			FromWarehouse:     ptr(item.WarehouseID),
			CartonsDelta:      -before.Cartons,
			SingleDelta:       -before.Singles,
			TotalDelta:        -before.Remaining,
			PreviousRemaining: before.Remaining,
			NewRemaining:      0,
			ActorID:           actorID,
			Timestamp:         at,
		}
		if err := s.record(ctx, t); err != nil {
			return err
		}
		if err := s.history(ctx, item, TransactionDelete, actorID, at, HistoryDetails{
			Before:        before,
			QuantityDelta: -before.Remaining,
			Fields: map[string]FieldChange{
				"name":  {Old: item.Name},
				"code":  {Old: item.Code},
				"color": {Old: item.Color},
			},
		}); err != nil {
			return err
		}

		return s.items.Delete(ctx, item.ID, item.Version)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, warehouseID)
	logger.Info(ctx, "item deleted", "item_id", itemID, "warehouse_id", warehouseID)
	return nil
}
