package memstore

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// view returns the item as the unit sees it: its own pending writes first,
// then the committed row.
func (s *Store) view(u *unit, itemID id.ID) (*ledger.Item, bool) {
	if u != nil {
		if _, deleted := u.deletes[itemID]; deleted {
			return nil, false
		}
		if it, ok := u.creates[itemID]; ok {
			return it.Clone(), true
		}
		if pu, ok := u.updates[itemID]; ok {
			return pu.item.Clone(), true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, false
	}
	return it.Clone(), true
}

// GetByID returns the committed item (or the unit's own version of it).
func (s *Store) GetByID(ctx context.Context, itemID id.ID) (*ledger.Item, error) {
	it, ok := s.view(unitFrom(ctx), itemID)
	if !ok {
		return nil, apperror.NewNotFound("item", itemID)
	}
	return it, nil
}

// GetForUpdate returns the item and records its version for commit validation.
func (s *Store) GetForUpdate(ctx context.Context, itemID id.ID) (*ledger.Item, error) {
	u := unitFrom(ctx)
	it, ok := s.view(u, itemID)
	if !ok {
		return nil, apperror.NewNotFound("item", itemID)
	}
	if u != nil {
		if _, seen := u.reads[itemID]; !seen {
			if _, created := u.creates[itemID]; !created {
				u.reads[itemID] = it.Version
			}
		}
	}
	return it, nil
}

// FindByKey looks the business key up and records the read (or the miss).
func (s *Store) FindByKey(ctx context.Context, key ledger.BusinessKey) (*ledger.Item, error) {
	u := unitFrom(ctx)
	if u != nil {
		for _, it := range u.creates {
			if it.Key() == key {
				return it.Clone(), nil
			}
		}
	}

	s.mu.RLock()
	itemID, ok := s.keys[key]
	s.mu.RUnlock()
	if ok {
		return s.GetForUpdate(ctx, itemID)
	}
	if u != nil {
		u.misses[key] = struct{}{}
	}
	return nil, apperror.NewNotFound("item", key)
}

// Create buffers a new item.
func (s *Store) Create(ctx context.Context, item *ledger.Item) error {
	return s.autocommit(ctx, func(u *unit) error {
		if item.Version == 0 {
			item.Version = 1
		}
		u.creates[item.ID] = item.Clone()
		return nil
	})
}

// Update buffers a versioned write and bumps item.Version.
func (s *Store) Update(ctx context.Context, item *ledger.Item) error {
	return s.autocommit(ctx, func(u *unit) error {
		if created, ok := u.creates[item.ID]; ok {
			item.Version = created.Version
			u.creates[item.ID] = item.Clone()
			return nil
		}
		expected := item.Version
		if pu, ok := u.updates[item.ID]; ok {
			if pu.item.Version != item.Version {
				return apperror.NewConflict("item", item.ID)
			}
			expected = pu.expected
		}
		item.Version++
		u.updates[item.ID] = &pendingUpdate{item: item.Clone(), expected: expected}
		return nil
	})
}

// Delete buffers a versioned delete.
func (s *Store) Delete(ctx context.Context, itemID id.ID, version int) error {
	return s.autocommit(ctx, func(u *unit) error {
		if _, ok := u.creates[itemID]; ok {
			delete(u.creates, itemID)
			return nil
		}
		if pu, ok := u.updates[itemID]; ok {
			if pu.item.Version != version {
				return apperror.NewConflict("item", itemID)
			}
			version = pu.expected
		}
		u.deletes[itemID] = version
		return nil
	})
}
