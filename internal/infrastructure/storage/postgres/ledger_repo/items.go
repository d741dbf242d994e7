// Package ledger_repo implements the ledger, search and reports ports on PostgreSQL.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const itemsTable = "items"

var itemColumns = []string{
	"id", "name", "code", "color", "warehouse_id",
	"cartons_count", "per_carton_count", "single_bottles_count", "remaining_quantity", "total_added",
	"supplier", "item_location", "notes", "photo_reference", "external_codes",
	"version", "created_at", "created_by", "updated_at", "updated_by",
}

var _ ledger.ItemRepository = (*ItemRepo)(nil)

// ItemRepo stores items. Reads made for update lock the row until the
// surrounding transaction ends; writes check the row version.
type ItemRepo struct {
	txm *postgres.TxManager
}

// NewItemRepo creates an item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{txm: txm}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *ItemRepo) selectItems() squirrel.SelectBuilder {
	return builder().Select(itemColumns...).From(itemsTable)
}

// forUpdate adds a row lock when ctx carries a transaction.
func (r *ItemRepo) forUpdate(ctx context.Context, q squirrel.SelectBuilder) squirrel.SelectBuilder {
	if r.txm.InTransaction(ctx) {
		return q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *ItemRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, notFound any) (*ledger.Item, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item ledger.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", notFound)
		}
		return nil, postgres.Classify(fmt.Errorf("get item: %w", err))
	}
	return &item, nil
}

// GetByID returns the item or NotFound.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*ledger.Item, error) {
	return r.getOne(ctx, r.selectItems().Where(squirrel.Eq{"id": itemID}), itemID)
}

// GetForUpdate returns the item locked for the rest of the transaction.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*ledger.Item, error) {
	q := r.forUpdate(ctx, r.selectItems().Where(squirrel.Eq{"id": itemID}))
	return r.getOne(ctx, q, itemID)
}

// FindByKey returns the item with the business key, locked, or NotFound.
// A concurrent insert of the same key fails the later Create with Conflict.
func (r *ItemRepo) FindByKey(ctx context.Context, key ledger.BusinessKey) (*ledger.Item, error) {
	q := r.forUpdate(ctx, r.selectItems().Where(keyCondition(key)))
	return r.getOne(ctx, q, key)
}

func keyCondition(key ledger.BusinessKey) squirrel.Eq {
	return squirrel.Eq{
		"name":         key.Name,
		"code":         key.Code,
		"color":        key.Color,
		"warehouse_id": key.WarehouseID,
	}
}

// Create inserts item at version 1.
func (r *ItemRepo) Create(ctx context.Context, item *ledger.Item) error {
	if item.Version == 0 {
		item.Version = 1
	}
	sql, args, err := insertItem(item).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.Classify(fmt.Errorf("insert item: %w", err))
	}
	return nil
}

func insertItem(item *ledger.Item) squirrel.InsertBuilder {
	codes := item.ExternalCodes
	if codes == nil {
		codes = []string{}
	}
	return builder().Insert(itemsTable).
		Columns(itemColumns...).
		Values(
			item.ID, item.Name, item.Code, item.Color, item.WarehouseID,
			item.CartonsCount, item.PerCartonCount, item.SingleBottlesCount, item.RemainingQuantity, item.TotalAdded,
			item.Supplier, item.ItemLocation, item.Notes, item.PhotoReference, codes,
			item.Version, item.CreatedAt, item.CreatedBy, item.UpdatedAt, item.UpdatedBy,
		)
}

// Update writes item if its version is unchanged and bumps item.Version.
func (r *ItemRepo) Update(ctx context.Context, item *ledger.Item) error {
	sql, args, err := updateItem(item).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.Classify(fmt.Errorf("update item: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("item", item.ID)
	}
	item.Version++
	return nil
}

func updateItem(item *ledger.Item) squirrel.UpdateBuilder {
	codes := item.ExternalCodes
	if codes == nil {
		codes = []string{}
	}
	return builder().Update(itemsTable).
		SetMap(map[string]any{
			"cartons_count":        item.CartonsCount,
			"per_carton_count":     item.PerCartonCount,
			"single_bottles_count": item.SingleBottlesCount,
			"remaining_quantity":   item.RemainingQuantity,
			"total_added":          item.TotalAdded,
			"supplier":             item.Supplier,
			"item_location":        item.ItemLocation,
			"notes":                item.Notes,
			"photo_reference":      item.PhotoReference,
			"external_codes":       codes,
			"updated_at":           item.UpdatedAt,
			"updated_by":           item.UpdatedBy,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": item.ID}).
		Where(squirrel.Eq{"version": item.Version})
}

// Delete removes the item if version is still current.
func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID, version int) error {
	sql, args, err := builder().Delete(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.Classify(fmt.Errorf("delete item: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("item", itemID)
	}
	return nil
}
