package ledger_repo

import (
	"context"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

// Outbox identifiers of ledger events.
const (
	AggregateItem        = "Item"
	EventTransactionMade = "ledger.transaction"
)

var _ ledger.EventPublisher = (*EventOutbox)(nil)

// EventOutbox writes committed ledger transactions to the transactional outbox.
type EventOutbox struct {
	outbox *postgres.OutboxPublisher
}

// NewEventOutbox creates a ledger event publisher over the outbox.
func NewEventOutbox(outbox *postgres.OutboxPublisher) *EventOutbox {
	return &EventOutbox{outbox: outbox}
}

// PublishTransaction records t in the outbox of the current transaction.
func (e *EventOutbox) PublishTransaction(ctx context.Context, t *ledger.Transaction) error {
	return e.outbox.Publish(ctx, postgres.DomainEvent{
		AggregateType: AggregateItem,
		AggregateID:   t.ItemID,
		EventType:     EventTransactionMade,
		Payload:       t,
	})
}
