package ledger

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

// OutcomeStatus tells whether AddOrUpdateItem created or updated an item.
type OutcomeStatus string

const (
	StatusCreated OutcomeStatus = "created"
	StatusUpdated OutcomeStatus = "updated"
)

// ItemOutcome is the result of AddOrUpdateItem.
type ItemOutcome struct {
	Status OutcomeStatus `json:"status"`
	Item   *Item         `json:"item"`
	// QuantityDelta is the change of the remaining quantity.
	QuantityDelta int64 `json:"quantityDelta"`
	// CartonsConvertedFromSingles counts cartons folded out of overflowing singles.
	CartonsConvertedFromSingles int64 `json:"cartonsConvertedFromSingles"`
}

// AddOrUpdateItem adds stock for the item identified by the business key of in,
// creating the item when the key is new.
func (s *Service) AddOrUpdateItem(ctx context.Context, in ItemInput, actorID string, p security.Principal, mode AddMode) (ItemOutcome, error) {
	in.trim()
	if mode == "" {
		mode = ModeAddCartons
	}
	if mode != ModeAddCartons && mode != ModeUpdatePacking {
		return ItemOutcome{}, apperror.NewValidation("unknown add mode").WithDetail("mode", mode)
	}
	if err := validateStruct(s.validate, &in); err != nil {
		return ItemOutcome{}, err
	}
	if err := rejectNegative(in.components()...); err != nil {
		return ItemOutcome{}, err
	}
	if err := security.RequireWrite(p, security.CapabilityAdd, in.WarehouseID); err != nil {
		return ItemOutcome{}, err
	}

	var out ItemOutcome
	err := s.atomically(ctx, "add_or_update", func(ctx context.Context) error {
		at := s.now().UTC()
		existing, err := s.items.FindByKey(ctx, in.key())
		switch {
		case err == nil:
			out, err = s.updateExisting(ctx, existing, in, mode, actorID, at)
		case apperror.IsNotFound(err):
			out, err = s.createItem(ctx, in, actorID, at)
		}
		return err
	})
	if err != nil {
		return ItemOutcome{}, err
	}

	s.invalidate(ctx, in.WarehouseID)
	logger.Info(ctx, "item stock added",
		"status", out.Status,
		"item_id", out.Item.ID,
		"warehouse_id", out.Item.WarehouseID,
		"quantity_delta", out.QuantityDelta,
		"converted_cartons", out.CartonsConvertedFromSingles,
	)
	return out, nil
}

func (s *Service) createItem(ctx context.Context, in ItemInput, actorID string, at time.Time) (ItemOutcome, error) {
	perCarton := types.EffectivePerCarton(in.PerCarton, types.DefaultPerCarton)
	cartons := max(in.Cartons, 0)
	var singles int64
	if in.Singles != nil {
		singles = *in.Singles
	}

	item := &Item{
		ID:             id.New(),
		Name:           in.Name,
		Code:           in.Code,
		Color:          in.Color,
		WarehouseID:    in.WarehouseID,
		Supplier:       in.Supplier,
		ItemLocation:   in.ItemLocation,
		Notes:          in.Notes,
		PhotoReference: in.PhotoReference,
		ExternalCodes:  in.ExternalCodes,
		Version:        1,
		CreatedAt:      at,
		CreatedBy:      actorID,
		UpdatedAt:      at,
		UpdatedBy:      actorID,
	}
	item.setPacking(cartons, perCarton, singles)
	total := item.Remaining()
	if total <= 0 {
		return ItemOutcome{}, apperror.NewInvalidQuantity(total)
	}
	item.TotalAdded = total
	item.mustBeConsistent()

	if err := s.items.Create(ctx, item); err != nil {
		return ItemOutcome{}, err
	}

	before := &Snapshot{PerCarton: perCarton}
	converted := item.CartonsCount - cartons
	t := newTransaction(TransactionAdd, item, before, actorID, at)
	t.ToWarehouse = ptr(item.WarehouseID)
	t.Notes = in.Notes
	if err := s.record(ctx, t); err != nil {
		return ItemOutcome{}, err
	}
	if err := s.history(ctx, item, TransactionAdd, actorID, at, HistoryDetails{
		After:            snapshotOf(item),
		QuantityDelta:    total,
		AddedQuantity:    total,
		ConvertedCartons: converted,
	}); err != nil {
		return ItemOutcome{}, err
	}

	return ItemOutcome{
		Status:                      StatusCreated,
		Item:                        item,
		QuantityDelta:               total,
		CartonsConvertedFromSingles: converted,
	}, nil
}

// updateExisting applies the packing rules to an existing item:
// cartons accumulate only in ModeAddCartons, a positive per-carton count
// replaces the stored one, supplied singles replace the stored singles.
func (s *Service) updateExisting(ctx context.Context, item *Item, in ItemInput, mode AddMode, actorID string, at time.Time) (ItemOutcome, error) {
	before := snapshotOf(item)

	perCarton := types.EffectivePerCarton(in.PerCarton, item.PerCartonCount)
	cartons := item.CartonsCount
	var addedCartons int64
	if mode == ModeAddCartons {
		addedCartons = max(in.Cartons, 0)
		cartons += addedCartons
	}
	singles := item.SingleBottlesCount
	if in.Singles != nil {
		singles = *in.Singles
	}

	item.setPacking(cartons, perCarton, singles)
	converted := item.CartonsCount - cartons
	added := (addedCartons + converted) * perCarton
	item.TotalAdded += added
	applyDescriptive(item, in)
	s.touch(item, actorID, at)
	item.mustBeConsistent()

	if err := s.items.Update(ctx, item); err != nil {
		return ItemOutcome{}, err
	}

	delta := item.Remaining() - before.Remaining
	typ := TransactionUpdate
	if added > 0 {
		typ = TransactionAdd
	}
	if added > 0 || delta != 0 {
		t := newTransaction(typ, item, before, actorID, at)
		t.ToWarehouse = ptr(item.WarehouseID)
		t.Notes = in.Notes
		if err := s.record(ctx, t); err != nil {
			return ItemOutcome{}, err
		}
	}
	if err := s.history(ctx, item, typ, actorID, at, HistoryDetails{
		Before:           before,
		After:            snapshotOf(item),
		QuantityDelta:    delta,
		AddedQuantity:    added,
		ConvertedCartons: converted,
	}); err != nil {
		return ItemOutcome{}, err
	}

	return ItemOutcome{
		Status:                      StatusUpdated,
		Item:                        item,
		QuantityDelta:               delta,
		CartonsConvertedFromSingles: converted,
	}, nil
}

// applyDescriptive copies non-empty descriptive fields of in onto item.
func applyDescriptive(item *Item, in ItemInput) {
	if in.Supplier != "" {
		item.Supplier = in.Supplier
	}
	if in.ItemLocation != "" {
		item.ItemLocation = in.ItemLocation
	}
	if in.Notes != "" {
		item.Notes = in.Notes
	}
	if in.PhotoReference != "" {
		item.PhotoReference = in.PhotoReference
	}
	if len(in.ExternalCodes) > 0 {
		item.ExternalCodes = in.ExternalCodes
	}
}
