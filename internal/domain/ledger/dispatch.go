package ledger

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/security"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// DispatchOutcome is the result of Dispatch.
type DispatchOutcome struct {
	Item              *Item        `json:"item"`
	Quantity          int64        `json:"quantity"`
	PreviousRemaining int64        `json:"previousRemaining"`
	NewRemaining      int64        `json:"newRemaining"`
	Transaction       *Transaction `json:"transaction"`
}

// requestedQuantity resolves the moved quantity: an explicit quantity wins
// over the packed triple, whose per-carton count defaults to the item's.
func requestedQuantity(quantity *int64, cartons, perCarton, singles int64, item *Item) int64 {
	if quantity != nil {
		return *quantity
	}
	return types.TotalQuantity(cartons, types.EffectivePerCarton(perCarton, item.PerCartonCount), singles)
}

// checkOutflow validates a quantity leaving item at fromWarehouse.
func checkOutflow(item *Item, fromWarehouse string, quantity int64) error {
	if item.WarehouseID != fromWarehouse {
		return apperror.NewWrongWarehouse(item.ID, fromWarehouse, item.WarehouseID)
	}
	if quantity <= 0 {
		return apperror.NewInvalidQuantity(quantity)
	}
	if available := item.Remaining(); quantity > available {
		return apperror.NewInsufficientQuantity(item.ID, quantity, available)
	}
	return nil
}

// Dispatch moves stock out of a warehouse to a non-warehouse destination.
// The item is re-read inside the atomic unit; a concurrent writer makes the
// unit retry from that read, so remaining stock never goes negative.
func (s *Service) Dispatch(ctx context.Context, in DispatchInput, actorID string, p security.Principal) (DispatchOutcome, error) {
	in.trim()
	if err := requireID(in.ItemID, "itemId"); err != nil {
		return DispatchOutcome{}, err
	}
	if err := validateStruct(s.validate, &in); err != nil {
		return DispatchOutcome{}, err
	}
	if err := rejectNegative(packedComponents(in.Quantity, in.Cartons, in.PerCarton, in.Singles)...); err != nil {
		return DispatchOutcome{}, err
	}
	if err := security.RequireWrite(p, security.CapabilityDispatch, in.FromWarehouseID); err != nil {
		return DispatchOutcome{}, err
	}

	var out DispatchOutcome
	err := s.atomically(ctx, "dispatch", func(ctx context.Context) error {
		at := s.now().UTC()
		item, err := s.items.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}

		quantity := requestedQuantity(in.Quantity, in.Cartons, in.PerCarton, in.Singles, item)
		if err := checkOutflow(item, in.FromWarehouseID, quantity); err != nil {
			return err
		}

		before := snapshotOf(item)
		item.setRemaining(before.Remaining - quantity)
		s.touch(item, actorID, at)
		item.mustBeConsistent()
		if err := s.items.Update(ctx, item); err != nil {
			return err
		}

		t := newTransaction(TransactionDispatch, item, before, actorID, at)
		t.FromWarehouse = ptr(item.WarehouseID)
		t.Destination = in.Destination
		t.Priority = in.Priority
		t.Notes = in.Notes
		if err := s.record(ctx, t); err != nil {
			return err
		}
		if err := s.history(ctx, item, TransactionDispatch, actorID, at, HistoryDetails{
			Before:        before,
			After:         snapshotOf(item),
			QuantityDelta: -quantity,
			Destination:   in.Destination,
			Notes:         in.Notes,
		}); err != nil {
			return err
		}

		out = DispatchOutcome{
			Item:              item,
			Quantity:          quantity,
			PreviousRemaining: t.PreviousRemaining,
			NewRemaining:      t.NewRemaining,
			Transaction:       t,
		}
		return nil
	})
	if err != nil {
		return DispatchOutcome{}, err
	}

	s.invalidate(ctx, in.FromWarehouseID)
	logger.Info(ctx, "stock dispatched",
		"item_id", out.Item.ID,
		"warehouse_id", in.FromWarehouseID,
		"destination", in.Destination,
		"quantity", out.Quantity,
		"new_remaining", out.NewRemaining,
	)
	return out, nil
}
