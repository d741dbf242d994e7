package memstore

import (
	"context"
	"slices"
	"strings"

	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/search"
)

var (
	_ search.Repository  = (*Store)(nil)
	_ reports.Repository = (*Store)(nil)
)

func (s *Store) scoped(scope security.Scope) []ledger.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Item, 0, len(s.items))
	for _, it := range s.items {
		if scope.Allows(it.WarehouseID) {
			out = append(out, *it.Clone())
		}
	}
	return out
}

// Candidates returns scoped items, most recently updated first.
func (s *Store) Candidates(_ context.Context, scope security.Scope, limit int) ([]ledger.Item, error) {
	items := s.scoped(scope)
	slices.SortFunc(items, func(a, b ledger.Item) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Page returns scoped items ordered by (name, id) after the cursor.
func (s *Store) Page(_ context.Context, scope security.Scope, after *search.Cursor, limit int) ([]ledger.Item, error) {
	items := s.scoped(scope)
	slices.SortFunc(items, compareByName)
	if after != nil {
		pivot := ledger.Item{Name: after.Name, ID: after.ID}
		items = slices.DeleteFunc(items, func(it ledger.Item) bool {
			return compareByName(it, pivot) <= 0
		})
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func compareByName(a, b ledger.Item) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// WarehouseTotals aggregates committed items per warehouse.
func (s *Store) WarehouseTotals(_ context.Context, warehouseIDs []string) ([]reports.WarehouseStats, error) {
	scope := security.Unrestricted()
	if warehouseIDs != nil {
		scope = security.WarehouseSet(warehouseIDs...)
	}

	byWarehouse := map[string]*reports.WarehouseStats{}
	for _, it := range s.scoped(scope) {
		st, ok := byWarehouse[it.WarehouseID]
		if !ok {
			st = &reports.WarehouseStats{WarehouseID: it.WarehouseID}
			byWarehouse[it.WarehouseID] = st
		}
		remaining := it.Remaining()
		st.ItemCount++
		st.TotalCartons += it.CartonsCount
		st.TotalSingles += it.SingleBottlesCount
		st.TotalRemaining += remaining
		st.TotalAdded += it.TotalAdded
		switch {
		case remaining == 0:
			st.OutOfStock++
		case remaining < it.PerCartonCount:
			st.LowStock++
		}
	}

	out := make([]reports.WarehouseStats, 0, len(byWarehouse))
	for _, st := range byWarehouse {
		out = append(out, *st)
	}
	return out, nil
}
