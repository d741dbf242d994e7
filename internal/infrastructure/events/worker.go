package events

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// Worker wraps the asynq server consuming ledger events.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker creates a worker consuming QueueLedger with consumer.
func NewWorker(redisOpts asynq.RedisConnOpt, concurrency int, consumer *TransactionConsumer) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueLedger: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLedgerTransaction, consumer.Handle)
	return &Worker{server: srv, mux: mux}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errCh:
		if errors.Is(err, asynq.ErrServerClosed) {
			return nil
		}
		return err
	}
}
