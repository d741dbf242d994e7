package memstore

import (
	"context"
	"slices"

	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
)

// AppendTransaction buffers an audit transaction.
func (s *Store) AppendTransaction(ctx context.Context, t *ledger.Transaction) error {
	return s.autocommit(ctx, func(u *unit) error {
		u.txs = append(u.txs, *t)
		return nil
	})
}

// AppendHistory buffers a history record.
func (s *Store) AppendHistory(ctx context.Context, h *ledger.HistoryRecord) error {
	return s.autocommit(ctx, func(u *unit) error {
		u.history = append(u.history, *h)
		return nil
	})
}

// PublishTransaction buffers an outbox event.
func (s *Store) PublishTransaction(ctx context.Context, t *ledger.Transaction) error {
	return s.autocommit(ctx, func(u *unit) error {
		u.events = append(u.events, Event{Transaction: *t})
		return nil
	})
}

// ListTransactions returns committed transactions, newest first.
func (s *Store) ListTransactions(_ context.Context, scope security.Scope, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.Transaction, 0)
	for i := len(s.txs) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		t := s.txs[i]
		switch {
		case !scope.Allows(t.WarehouseID):
		case filter.ItemID != nil && t.ItemID != *filter.ItemID:
		case filter.WarehouseID != "" && t.WarehouseID != filter.WarehouseID:
		case filter.Type != "" && t.Type != filter.Type:
		default:
			out = append(out, t)
		}
	}
	return out, nil
}

// ListHistory returns committed history of one item, newest first.
func (s *Store) ListHistory(_ context.Context, scope security.Scope, itemID id.ID, limit int) ([]ledger.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.HistoryRecord, 0)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		h := s.history[i]
		if h.ItemID == itemID && scope.Allows(h.WarehouseID) {
			out = append(out, h)
		}
	}
	return out, nil
}

// TransactionsFor returns every committed transaction of an item in commit order.
func (s *Store) TransactionsFor(itemID id.ID) []ledger.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.DeleteFunc(slices.Clone(s.txs), func(t ledger.Transaction) bool {
		return t.ItemID != itemID
	})
}
