// Package reports provides warehouse stock statistics.
package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stockledger/internal/core/security"
	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

const allKey = "all"

// Service computes warehouse stats, optionally through a cache.
type Service struct {
	repo   Repository
	reader tx.Reader
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithReader computes totals inside read-only units of r.
func WithReader(r tx.Reader) Option {
	return func(s *Service) { s.reader = r }
}

// NewService creates a reports service. cache may be nil.
func NewService(repo Repository, cache Cache, ttl time.Duration, opts ...Option) *Service {
	s := &Service{repo: repo, cache: cache, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWarehouseStats returns stats for the warehouses visible to p.
// warehouseID optionally narrows to one warehouse.
func (s *Service) GetWarehouseStats(ctx context.Context, warehouseID string, p security.Principal) (*Stats, error) {
	scope, err := security.ResolveRead(p, strings.TrimSpace(warehouseID))
	if err != nil {
		return nil, err
	}

	if scope.IsUnrestricted() {
		return s.cached(ctx, allKey, nil)
	}

	ids := scope.Warehouses()
	parts := make([]*Stats, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, w := range ids {
		g.Go(func() error {
			st, err := s.cached(gctx, warehouseKey(w), []string{w})
			if err != nil {
				return err
			}
			parts[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Stats{Warehouses: []WarehouseStats{}, GeneratedAt: s.now().UTC()}
	for _, part := range parts {
		out.WarehouseStats.Add(part.WarehouseStats)
		out.Warehouses = append(out.Warehouses, part.Warehouses...)
	}
	return out, nil
}

// Invalidate drops cached stats of the warehouses and of the unrestricted scope.
func (s *Service) Invalidate(ctx context.Context, warehouseIDs ...string) error {
	if s.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(warehouseIDs)+1)
	keys = append(keys, allKey)
	for _, w := range warehouseIDs {
		keys = append(keys, warehouseKey(w))
	}
	return s.cache.Delete(ctx, keys...)
}

func (s *Service) cached(ctx context.Context, key string, warehouseIDs []string) (*Stats, error) {
	if s.cache != nil {
		st, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn(ctx, "stats cache read failed", "key", key, "error", err)
		case ok:
			return st, nil
		}
	}

	st, err := s.compute(ctx, warehouseIDs)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, st, s.ttl); err != nil {
			logger.Warn(ctx, "stats cache write failed", "key", key, "error", err)
		}
	}
	return st, nil
}

func (s *Service) compute(ctx context.Context, warehouseIDs []string) (*Stats, error) {
	var rows []WarehouseStats
	err := tx.ReadOnly(ctx, s.reader, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.WarehouseTotals(ctx, warehouseIDs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("warehouse totals: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].WarehouseID < rows[j].WarehouseID })

	st := &Stats{Warehouses: rows, GeneratedAt: s.now().UTC()}
	if st.Warehouses == nil {
		st.Warehouses = []WarehouseStats{}
	}
	for _, r := range rows {
		st.WarehouseStats.Add(r)
	}
	return st, nil
}

func warehouseKey(id string) string {
	return "w:" + id
}
