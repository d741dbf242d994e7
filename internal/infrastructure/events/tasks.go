// Package events relays committed ledger transactions from the outbox to
// asynq and consumes them in the worker.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"stockledger/internal/domain/ledger"
)

const (
	// TaskLedgerTransaction carries one committed ledger.Transaction as JSON.
	TaskLedgerTransaction = "ledger:transaction"

	// QueueLedger is the queue ledger events are enqueued on.
	QueueLedger = "ledger"

	taskMaxRetry  = 10
	taskRetention = 24 * time.Hour
)

// NewTransactionTask builds a task from an outbox payload. The outbox message
// id is the task id, so relaying the same message twice enqueues it once.
func NewTransactionTask(messageID string, payload []byte) *asynq.Task {
	return asynq.NewTask(TaskLedgerTransaction, payload,
		asynq.TaskID(messageID),
		asynq.Queue(QueueLedger),
		asynq.MaxRetry(taskMaxRetry),
		asynq.Retention(taskRetention),
	)
}

// DecodeTransaction parses the payload of a TaskLedgerTransaction task.
func DecodeTransaction(task *asynq.Task) (*ledger.Transaction, error) {
	var t ledger.Transaction
	if err := json.Unmarshal(task.Payload(), &t); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w: %w", task.Type(), err, asynq.SkipRetry)
	}
	return &t, nil
}
