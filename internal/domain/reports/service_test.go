package reports_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/storage/memstore"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]*reports.Stats
	hits int
}

func newMapCache() *mapCache { return &mapCache{data: map[string]*reports.Stats{}} }

func (c *mapCache) Get(_ context.Context, key string) (*reports.Stats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.data[key]
	if ok {
		c.hits++
	}
	return st, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, st *reports.Stats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = st
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func stock(warehouse string, remaining, perCarton, added int64) *ledger.Item {
	it := &ledger.Item{
		ID:             id.New(),
		Name:           "item-" + id.New().String(),
		Code:           "c",
		Color:          "red",
		WarehouseID:    warehouse,
		PerCartonCount: perCarton,
		TotalAdded:     added,
	}
	it.CartonsCount, it.SingleBottlesCount = remaining/perCarton, remaining%perCarton
	it.RemainingQuantity = &remaining
	return it
}

func seeded() *memstore.Store {
	store := memstore.New()
	store.Seed(
		stock("A", 30, 12, 48), // 2 cartons + 6
		stock("A", 0, 12, 12),  // out of stock
		stock("A", 5, 12, 5),   // low stock
		stock("B", 24, 6, 24),
	)
	return store
}

func TestGetWarehouseStats(t *testing.T) {
	ctx := context.Background()
	svc := reports.NewService(seeded(), nil, time.Minute)

	st, err := svc.GetWarehouseStats(ctx, "", security.Principal{Role: security.RoleCompanyManager})
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.ItemCount)
	assert.Equal(t, int64(59), st.TotalRemaining)
	assert.Equal(t, int64(89), st.TotalAdded)
	assert.Equal(t, int64(1), st.OutOfStock)
	assert.Equal(t, int64(1), st.LowStock)
	assert.Equal(t, int64(2+0+0+4), st.TotalCartons)
	assert.Equal(t, int64(6+0+5+0), st.TotalSingles)
	require.Len(t, st.Warehouses, 2)
	assert.Equal(t, "A", st.Warehouses[0].WarehouseID)
	assert.Equal(t, int64(35), st.Warehouses[0].TotalRemaining)

	st, err = svc.GetWarehouseStats(ctx, "B", security.Principal{Role: security.RoleSuperadmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ItemCount)
	assert.Equal(t, int64(24), st.TotalRemaining)
}

func TestGetWarehouseStatsScoped(t *testing.T) {
	ctx := context.Background()
	svc := reports.NewService(seeded(), nil, time.Minute)
	manager := security.Principal{Role: security.RoleWarehouseManager, AllowedWarehouses: []string{"A", "C"}}

	st, err := svc.GetWarehouseStats(ctx, "", manager)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.ItemCount)
	assert.Equal(t, int64(35), st.TotalRemaining)

	_, err = svc.GetWarehouseStats(ctx, "B", manager)
	assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))
}

func TestStatsCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	store := seeded()
	cache := newMapCache()
	svc := reports.NewService(store, cache, time.Minute)

	first, err := svc.GetWarehouseStats(ctx, "", security.Principal{Role: security.RoleSuperadmin})
	require.NoError(t, err)
	_, err = svc.GetWarehouseStats(ctx, "", security.Principal{Role: security.RoleSuperadmin})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	store.Seed(stock("A", 12, 12, 12))
	require.NoError(t, svc.Invalidate(ctx, "A"))

	second, err := svc.GetWarehouseStats(ctx, "", security.Principal{Role: security.RoleSuperadmin})
	require.NoError(t, err)
	assert.Equal(t, first.ItemCount+1, second.ItemCount)
}

type countingReader struct {
	tx.Reader
	calls atomic.Int64
}

func (r *countingReader) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls.Add(1)
	return r.Reader.ReadOnly(ctx, fn)
}

func TestStatsComputedInReadOnlyUnit(t *testing.T) {
	store := seeded()
	reader := &countingReader{Reader: store}
	svc := reports.NewService(store, nil, time.Minute, reports.WithReader(reader))

	st, err := svc.GetWarehouseStats(context.Background(), "A", security.Principal{Role: security.RoleSuperadmin})
	require.NoError(t, err)
	assert.Equal(t, int64(35), st.TotalRemaining)
	assert.Positive(t, reader.calls.Load())
}
