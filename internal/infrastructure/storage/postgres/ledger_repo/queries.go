package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/storage/postgres"
)

var (
	_ search.Repository  = (*ItemRepo)(nil)
	_ reports.Repository = (*ItemRepo)(nil)
)

// Candidates returns items within scope, most recently updated first.
func (r *ItemRepo) Candidates(ctx context.Context, scope security.Scope, limit int) ([]ledger.Item, error) {
	q := scoped(r.selectItems(), scope).OrderBy("updated_at DESC", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.selectMany(ctx, q)
}

// Page returns items within scope ordered by (name, id) strictly after cursor.
func (r *ItemRepo) Page(ctx context.Context, scope security.Scope, after *search.Cursor, limit int) ([]ledger.Item, error) {
	return r.selectMany(ctx, pageQuery(r.selectItems(), scope, after, limit))
}

func pageQuery(q squirrel.SelectBuilder, scope security.Scope, after *search.Cursor, limit int) squirrel.SelectBuilder {
	q = scoped(q, scope)
	if after != nil {
		q = q.Where("(name, id) > (?, ?)", after.Name, after.ID)
	}
	return q.OrderBy("name", "id").Limit(uint64(limit))
}

func (r *ItemRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]ledger.Item, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]ledger.Item, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.Classify(fmt.Errorf("list items: %w", err))
	}
	return out, nil
}

// remainingExpr is the canonical remaining quantity, derived from packing for legacy rows.
const remainingExpr = "COALESCE(remaining_quantity, cartons_count * per_carton_count + single_bottles_count)"

// WarehouseTotals aggregates items per warehouse. Nil warehouseIDs means every warehouse.
func (r *ItemRepo) WarehouseTotals(ctx context.Context, warehouseIDs []string) ([]reports.WarehouseStats, error) {
	sql, args, err := totalsQuery(warehouseIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]reports.WarehouseStats, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.Classify(fmt.Errorf("warehouse totals: %w", err))
	}
	return out, nil
}

func totalsQuery(warehouseIDs []string) squirrel.SelectBuilder {
	scope := security.Unrestricted()
	if warehouseIDs != nil {
		scope = security.WarehouseSet(warehouseIDs...)
	}
	q := builder().
		Select(
			"warehouse_id",
			"COUNT(*) AS item_count",
			"COALESCE(SUM(cartons_count), 0)::bigint AS total_cartons",
			"COALESCE(SUM(single_bottles_count), 0)::bigint AS total_singles",
			"COALESCE(SUM("+remainingExpr+"), 0)::bigint AS total_remaining",
			"COALESCE(SUM(total_added), 0)::bigint AS total_added",
			"COUNT(*) FILTER (WHERE "+remainingExpr+" = 0) AS out_of_stock",
			"COUNT(*) FILTER (WHERE "+remainingExpr+" > 0 AND "+remainingExpr+" < per_carton_count) AS low_stock",
		).
		From(itemsTable)
	return scoped(q, scope).GroupBy("warehouse_id").OrderBy("warehouse_id")
}
