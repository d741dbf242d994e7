package ledger

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/pkg/logger"
)

// UpdateItemDetails patches descriptive fields of an item.
//
// The remaining quantity is never changed here. A new per-carton count
// re-derives cartons and singles from the unchanged remaining quantity so the
// packed form keeps matching it.
func (s *Service) UpdateItemDetails(ctx context.Context, itemID id.ID, upd DetailsUpdate, actorID string, p security.Principal) error {
	if err := requireID(itemID, "itemId"); err != nil {
		return err
	}
	upd.trim()
	if upd.empty() {
		return apperror.NewValidation("no fields to update")
	}
	if upd.PerCartonCount != nil && *upd.PerCartonCount <= 0 {
		return apperror.NewValidation("perCartonCount must be positive").WithDetail("field", "perCartonCount")
	}
	if err := validateStruct(s.validate, &upd); err != nil {
		return err
	}

	var warehouseID string
	err := s.atomically(ctx, "update_details", func(ctx context.Context) error {
		at := s.now().UTC()
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if err := security.RequireWrite(p, security.CapabilityEdit, item.WarehouseID); err != nil {
			return err
		}
		warehouseID = item.WarehouseID

		before := snapshotOf(item)
		changes := map[string]FieldChange{}
		setString(changes, "supplier", &item.Supplier, upd.Supplier)
		setString(changes, "itemLocation", &item.ItemLocation, upd.ItemLocation)
		setString(changes, "notes", &item.Notes, upd.Notes)
		setString(changes, "photoReference", &item.PhotoReference, upd.PhotoReference)
		if upd.ExternalCodes != nil && !slices.Equal(item.ExternalCodes, *upd.ExternalCodes) {
			changes["externalCodes"] = FieldChange{
				Old: strings.Join(item.ExternalCodes, ","),
				New: strings.Join(*upd.ExternalCodes, ","),
			}
			item.ExternalCodes = *upd.ExternalCodes
		}
		if upd.PerCartonCount != nil && *upd.PerCartonCount != item.PerCartonCount {
			changes["perCartonCount"] = FieldChange{
				Old: strconv.FormatInt(item.PerCartonCount, 10),
				New: strconv.FormatInt(*upd.PerCartonCount, 10),
			}
			remaining := item.Remaining()
			item.PerCartonCount = *upd.PerCartonCount
			item.setRemaining(remaining)
		}
		if len(changes) == 0 {
			return nil
		}

		s.touch(item, actorID, at)
		item.mustBeConsistent()
		if err := s.items.Update(ctx, item); err != nil {
			return err
		}

		t := newTransaction(TransactionUpdate, item, before, actorID, at)
		if err := s.record(ctx, t); err != nil {
			return err
		}
		return s.history(ctx, item, TransactionUpdate, actorID, at, HistoryDetails{
			Before: before,
			After:  snapshotOf(item),
			Fields: changes,
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, warehouseID)
	logger.Info(ctx, "item details updated", "item_id", itemID, "warehouse_id", warehouseID)
	return nil
}

func setString(changes map[string]FieldChange, name string, field *string, value *string) {
	if value == nil || *value == *field {
		return
	}
	changes[name] = FieldChange{Old: *field, New: *value}
	*field = *value
}
