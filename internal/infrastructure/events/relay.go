package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

// Enqueuer is the part of asynq.Client the relay uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ postgres.OutboxHandler = (*RelayHandler)(nil)

// RelayHandler enqueues outbox messages as asynq tasks.
type RelayHandler struct {
	queue Enqueuer
}

// NewRelayHandler creates an outbox handler publishing to queue.
func NewRelayHandler(queue Enqueuer) *RelayHandler {
	return &RelayHandler{queue: queue}
}

// Handle enqueues msg. Messages of unknown type are acknowledged and dropped.
func (h *RelayHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	if msg.EventType != ledger_repo.EventTransactionMade {
		logger.Warn(ctx, "dropping outbox message of unknown type", "message_id", msg.ID, "event_type", msg.EventType)
		return nil
	}

	info, err := h.queue.EnqueueContext(ctx, NewTransactionTask(msg.ID.String(), msg.Payload))
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		logger.Debug(ctx, "outbox message already enqueued", "message_id", msg.ID)
		return nil
	case err != nil:
		return fmt.Errorf("enqueue %s: %w", TaskLedgerTransaction, err)
	}

	logger.Debug(ctx, "outbox message enqueued", "message_id", msg.ID, "task_id", info.ID, "queue", info.Queue)
	return nil
}
