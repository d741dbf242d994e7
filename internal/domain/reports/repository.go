package reports

import (
	"context"
	"time"
)

// Repository computes stats from the item store.
type Repository interface {
	// WarehouseTotals returns one row per warehouse that holds items.
	// Nil warehouseIDs means every warehouse.
	WarehouseTotals(ctx context.Context, warehouseIDs []string) ([]WarehouseStats, error)
}

// Cache stores computed stats. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, key string) (stats *Stats, ok bool, err error)
	Set(ctx context.Context, key string, stats *Stats, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
