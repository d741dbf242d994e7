// Package memstore is an in-memory implementation of the ledger persistence
// ports with optimistic concurrency control.
//
// A unit of work reads committed snapshots and buffers its writes. Commit
// checks, under the store lock, that every item the unit read for update still
// has the version it saw and that every business key it found absent is still
// absent; otherwise the unit fails with Conflict and nothing is applied.
package memstore

import (
	"context"
	"errors"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/ledger"
)

// Event is a transaction record published through the store's outbox.
type Event struct {
	Transaction ledger.Transaction
}

// Store holds items, audit records and outbox events in memory.
type Store struct {
	mu      sync.RWMutex
	items   map[id.ID]*ledger.Item
	keys    map[ledger.BusinessKey]id.ID
	txs     []ledger.Transaction
	history []ledger.HistoryRecord
	outbox  []Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		items: make(map[id.ID]*ledger.Item),
		keys:  make(map[ledger.BusinessKey]id.ID),
	}
}

var (
	_ tx.ReadOnlyManager    = (*Store)(nil)
	_ ledger.ItemRepository = (*Store)(nil)
	_ ledger.LogRepository  = (*Store)(nil)
	_ ledger.EventPublisher = (*Store)(nil)
)

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Seed inserts items as committed rows, bypassing the ledger.
// Intended for fixtures, including legacy rows without a remaining quantity.
func (s *Store) Seed(items ...*ledger.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		c := it.Clone()
		if c.Version == 0 {
			c.Version = 1
		}
		s.items[c.ID] = c
		s.keys[c.Key()] = c.ID
	}
}

// Events returns the published outbox events.
func (s *Store) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.outbox...)
}

// --- unit of work ---

type unitKey struct{}

type pendingUpdate struct {
	item     *ledger.Item
	expected int
}

type unit struct {
	reads   map[id.ID]int
	misses  map[ledger.BusinessKey]struct{}
	creates map[id.ID]*ledger.Item
	updates map[id.ID]*pendingUpdate
	deletes map[id.ID]int
	txs     []ledger.Transaction
	history []ledger.HistoryRecord
	events  []Event
}

func newUnit() *unit {
	return &unit{
		reads:   make(map[id.ID]int),
		misses:  make(map[ledger.BusinessKey]struct{}),
		creates: make(map[id.ID]*ledger.Item),
		updates: make(map[id.ID]*pendingUpdate),
		deletes: make(map[id.ID]int),
	}
}

func unitFrom(ctx context.Context) *unit {
	u, _ := ctx.Value(unitKey{}).(*unit)
	return u
}

// RunInTransaction executes fn as one unit. Nested calls reuse the outer unit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if unitFrom(ctx) != nil {
		return fn(ctx)
	}
	u := newUnit()
	if err := fn(context.WithValue(ctx, unitKey{}, u)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(u)
}

type readOnlyKey struct{}

// ErrReadOnly is returned by writes issued inside a ReadOnly unit.
var ErrReadOnly = errors.New("memstore: write in read-only unit")

// ReadOnly executes fn in a unit that rejects writes.
// Inside an existing unit fn runs in that unit.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if unitFrom(ctx) != nil {
		return fn(ctx)
	}
	return fn(context.WithValue(ctx, readOnlyKey{}, true))
}

func readOnly(ctx context.Context) bool {
	ro, _ := ctx.Value(readOnlyKey{}).(bool)
	return ro
}

func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for itemID, version := range u.reads {
		cur, ok := s.items[itemID]
		if !ok || cur.Version != version {
			return apperror.NewConflict("item", itemID)
		}
	}
	for key := range u.misses {
		if _, taken := s.keys[key]; taken {
			return apperror.NewConflict("item", key)
		}
	}
	for itemID, pu := range u.updates {
		cur, ok := s.items[itemID]
		if !ok || cur.Version != pu.expected {
			return apperror.NewConflict("item", itemID)
		}
	}
	for itemID, version := range u.deletes {
		cur, ok := s.items[itemID]
		if !ok || cur.Version != version {
			return apperror.NewConflict("item", itemID)
		}
	}
	for _, it := range u.creates {
		if _, taken := s.keys[it.Key()]; taken {
			return apperror.NewConflict("item", it.Key())
		}
	}

	for _, it := range u.creates {
		s.items[it.ID] = it.Clone()
		s.keys[it.Key()] = it.ID
	}
	for itemID, pu := range u.updates {
		if _, deleted := u.deletes[itemID]; deleted {
			continue
		}
		cur := s.items[itemID]
		if cur.Key() != pu.item.Key() {
			delete(s.keys, cur.Key())
			s.keys[pu.item.Key()] = itemID
		}
		s.items[itemID] = pu.item.Clone()
	}
	for itemID := range u.deletes {
		if cur, ok := s.items[itemID]; ok {
			delete(s.keys, cur.Key())
			delete(s.items, itemID)
		}
	}
	s.txs = append(s.txs, u.txs...)
	s.history = append(s.history, u.history...)
	s.outbox = append(s.outbox, u.events...)
	return nil
}

// autocommit runs fn in its own unit when ctx carries none.
func (s *Store) autocommit(ctx context.Context, fn func(u *unit) error) error {
	if readOnly(ctx) {
		return apperror.NewInternal(ErrReadOnly)
	}
	if u := unitFrom(ctx); u != nil {
		return fn(u)
	}
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(unitFrom(ctx))
	})
}
