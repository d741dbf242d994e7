package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/security"
	"stockledger/internal/domain/reports"
)

func newTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, "test:"), mr
}

func sampleStats() *reports.Stats {
	return &reports.Stats{
		WarehouseStats: reports.WarehouseStats{ItemCount: 2, TotalRemaining: 41, TotalCartons: 3, TotalSingles: 5},
		Warehouses: []reports.WarehouseStats{
			{WarehouseID: "w1", ItemCount: 2, TotalRemaining: 41, TotalCartons: 3, TotalSingles: 5},
		},
		GeneratedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestStatsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		c, _ := newTestCache(t)
		got, ok, err := c.Get(ctx, "all")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("set then get", func(t *testing.T) {
		c, mr := newTestCache(t)
		require.NoError(t, c.Set(ctx, "w:w1", sampleStats(), time.Minute))
		assert.True(t, mr.Exists("test:w:w1"))

		got, ok, err := c.Get(ctx, "w:w1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, sampleStats(), got)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		c, mr := newTestCache(t)
		require.NoError(t, c.Set(ctx, "all", sampleStats(), time.Minute))
		mr.FastForward(2 * time.Minute)

		_, ok, err := c.Get(ctx, "all")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		c, mr := newTestCache(t)
		require.NoError(t, c.Set(ctx, "all", sampleStats(), time.Minute))
		require.NoError(t, c.Set(ctx, "w:w1", sampleStats(), time.Minute))

		require.NoError(t, c.Delete(ctx, "all", "w:w1", "w:missing"))
		assert.False(t, mr.Exists("test:all"))
		assert.False(t, mr.Exists("test:w:w1"))
		assert.NoError(t, c.Delete(ctx))
	})

	t.Run("corrupt payload", func(t *testing.T) {
		c, mr := newTestCache(t)
		require.NoError(t, mr.Set("test:all", "{not json"))
		_, _, err := c.Get(ctx, "all")
		assert.Error(t, err)
	})

	t.Run("server down", func(t *testing.T) {
		c, mr := newTestCache(t)
		mr.Close()
		_, _, err := c.Get(ctx, "all")
		assert.Error(t, err)
	})
}

func TestStatsCacheWithService(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	repo := &countingTotals{rows: []reports.WarehouseStats{{WarehouseID: "w1", ItemCount: 1, TotalRemaining: 10}}}
	svc := reports.NewService(repo, c, time.Minute)
	admin := security.Principal{UserID: "root", Role: security.RoleSuperadmin}

	first, err := svc.GetWarehouseStats(ctx, "", admin)
	require.NoError(t, err)
	assert.Equal(t, int64(10), first.TotalRemaining)
	assert.True(t, mr.Exists("test:all"))

	_, err = svc.GetWarehouseStats(ctx, "", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second read is served from redis")

	require.NoError(t, svc.Invalidate(ctx, "w1"))
	assert.False(t, mr.Exists("test:all"))

	_, err = svc.GetWarehouseStats(ctx, "", admin)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

type countingTotals struct {
	rows  []reports.WarehouseStats
	calls int
}

func (c *countingTotals) WarehouseTotals(context.Context, []string) ([]reports.WarehouseStats, error) {
	c.calls++
	return c.rows, nil
}
