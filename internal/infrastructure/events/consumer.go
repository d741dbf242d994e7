package events

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// TransactionConsumer reacts to committed ledger transactions in the worker.
// It drops cached stats of every warehouse the transaction touched, so API
// instances that did not perform the write stop serving stale numbers.
type TransactionConsumer struct {
	invalidator ledger.Invalidator
}

// NewTransactionConsumer creates a consumer. invalidator may be nil.
func NewTransactionConsumer(invalidator ledger.Invalidator) *TransactionConsumer {
	return &TransactionConsumer{invalidator: invalidator}
}

// Handle processes one TaskLedgerTransaction task.
func (c *TransactionConsumer) Handle(ctx context.Context, task *asynq.Task) error {
	t, err := DecodeTransaction(task)
	if err != nil {
		return err
	}

	logger.Info(ctx, "ledger transaction received",
		"transaction_id", t.ID,
		"type", t.Type,
		"item_id", t.ItemID,
		"warehouse_id", t.WarehouseID,
		"total_delta", t.TotalDelta,
	)

	if c.invalidator == nil {
		return nil
	}
	if err := c.invalidator.Invalidate(ctx, touchedWarehouses(t)...); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

func touchedWarehouses(t *ledger.Transaction) []string {
	out := []string{t.WarehouseID}
	for _, w := range []*string{t.FromWarehouse, t.ToWarehouse} {
		if w != nil && *w != "" && *w != t.WarehouseID {
			out = append(out, *w)
		}
	}
	return out
}
