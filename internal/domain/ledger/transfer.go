package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/pkg/logger"
)

// TransferOutcome is the result of Transfer.
type TransferOutcome struct {
	Source             *Item `json:"source"`
	Destination        *Item `json:"destination"`
	Quantity           int64 `json:"quantity"`
	DestinationCreated bool  `json:"destinationCreated"`
}

// Transfer moves stock of one item between two warehouses.
// The source decrement and the destination increment (or creation) commit as
// one unit.
func (s *Service) Transfer(ctx context.Context, in TransferInput, actorID string, p security.Principal) (TransferOutcome, error) {
	in.trim()
	if err := requireID(in.ItemID, "itemId"); err != nil {
		return TransferOutcome{}, err
	}
	if err := validateStruct(s.validate, &in); err != nil {
		return TransferOutcome{}, err
	}
	if err := rejectNegative(packedComponents(in.Quantity, in.Cartons, in.PerCarton, in.Singles)...); err != nil {
		return TransferOutcome{}, err
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return TransferOutcome{}, apperror.NewValidation("source and destination warehouses must differ").
			WithDetail("warehouse_id", in.FromWarehouseID)
	}
	if err := security.RequireWrite(p, security.CapabilityTransfer, in.FromWarehouseID, in.ToWarehouseID); err != nil {
		return TransferOutcome{}, err
	}

	var out TransferOutcome
	err := s.atomically(ctx, "transfer", func(ctx context.Context) error {
		at := s.now().UTC()
		src, err := s.items.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		quantity := requestedQuantity(in.Quantity, in.Cartons, in.PerCarton, in.Singles, src)
		if err := checkOutflow(src, in.FromWarehouseID, quantity); err != nil {
			return err
		}

		srcBefore := snapshotOf(src)
		src.setRemaining(srcBefore.Remaining - quantity)
		s.touch(src, actorID, at)
		src.mustBeConsistent()
		if err := s.items.Update(ctx, src); err != nil {
			return err
		}

		dst, created, dstBefore, err := s.receive(ctx, src, in.ToWarehouseID, quantity, actorID, at)
		if err != nil {
			return err
		}

		t := newTransaction(TransactionTransfer, src, srcBefore, actorID, at)
		t.FromWarehouse = ptr(in.FromWarehouseID)
		t.ToWarehouse = ptr(in.ToWarehouseID)
		t.Notes = in.Notes
		if err := s.record(ctx, t); err != nil {
			return err
		}
		if s.cfg.SymmetricTransferLog {
			inbound := newTransaction(TransactionTransfer, dst, dstBefore, actorID, at)
			inbound.FromWarehouse = t.FromWarehouse
			inbound.ToWarehouse = t.ToWarehouse
			inbound.Notes = t.Notes
			if err := s.record(ctx, inbound); err != nil {
				return err
			}
		}

		if err := s.history(ctx, src, TransactionTransfer, actorID, at, HistoryDetails{
			Before:        srcBefore,
			After:         snapshotOf(src),
			QuantityDelta: -quantity,
			Counterpart:   in.ToWarehouseID,
			Notes:         in.Notes,
		}); err != nil {
			return err
		}
		dstDetails := HistoryDetails{
			After:         snapshotOf(dst),
			QuantityDelta: quantity,
			AddedQuantity: quantity,
			Counterpart:   in.FromWarehouseID,
			Notes:         in.Notes,
		}
		if !created {
			dstDetails.Before = dstBefore
		}
		if err := s.history(ctx, dst, TransactionTransfer, actorID, at, dstDetails); err != nil {
			return err
		}

		out = TransferOutcome{Source: src, Destination: dst, Quantity: quantity, DestinationCreated: created}
		return nil
	})
	if err != nil {
		return TransferOutcome{}, err
	}

	s.invalidate(ctx, in.FromWarehouseID, in.ToWarehouseID)
	logger.Info(ctx, "stock transferred",
		"item_id", out.Source.ID,
		"destination_item_id", out.Destination.ID,
		"from_warehouse", in.FromWarehouseID,
		"to_warehouse", in.ToWarehouseID,
		"quantity", out.Quantity,
		"destination_created", out.DestinationCreated,
	)
	return out, nil
}

// receive adds quantity to the item matching src's key at warehouseID,
// creating it from src's descriptive fields when absent.
func (s *Service) receive(ctx context.Context, src *Item, warehouseID string, quantity int64, actorID string, at time.Time) (*Item, bool, *Snapshot, error) {
	key := src.Key()
	key.WarehouseID = warehouseID

	dst, err := s.items.FindByKey(ctx, key)
	switch {
	case err == nil:
		before := snapshotOf(dst)
		dst.setRemaining(before.Remaining + quantity)
		dst.TotalAdded += quantity
		s.touch(dst, actorID, at)
		dst.mustBeConsistent()
		if err := s.items.Update(ctx, dst); err != nil {
			return nil, false, nil, err
		}
		return dst, false, before, nil

	case apperror.IsNotFound(err):
		dst = &Item{
			ID:                id.New(),
			Name:              src.Name,
			Code:              src.Code,
			Color:             src.Color,
			WarehouseID:       warehouseID,
			PerCartonCount:    src.PerCartonCount,
			RemainingQuantity: ptr(int64(0)),
			TotalAdded:        quantity,
			Supplier:          src.Supplier,
			ItemLocation:      src.ItemLocation,
			Notes:             src.Notes,
			PhotoReference:    src.PhotoReference,
			ExternalCodes:     append([]string(nil), src.ExternalCodes...),
			Version:           1,
			CreatedAt:         at,
			CreatedBy:         actorID,
			UpdatedAt:         at,
			UpdatedBy:         actorID,
		}
		dst.setRemaining(quantity)
		dst.mustBeConsistent()
		if err := s.items.Create(ctx, dst); err != nil {
			return nil, false, nil, err
		}
		return dst, true, &Snapshot{PerCarton: dst.PerCartonCount}, nil

	default:
		return nil, false, nil, err
	}
}
