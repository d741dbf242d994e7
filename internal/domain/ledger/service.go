package ledger

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

// Config tunes the engine.
type Config struct {
	// MaxAttempts bounds executions of an atomic unit that keeps losing write races.
	MaxAttempts int
	// SymmetricTransferLog writes a second TRANSFER record on the destination item.
	SymmetricTransferLog bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, SymmetricTransferLog: true}
}

// Service executes ledger operations.
type Service struct {
	items       ItemRepository
	logs        LogRepository
	txm         tx.Manager
	events      EventPublisher
	invalidator Invalidator
	cfg         Config
	validate    *validator.Validate
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes every transaction record inside its atomic unit.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithInvalidator drops derived stats of touched warehouses after commit.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the ledger engine.
func NewService(items ItemRepository, logs LogRepository, txm tx.Manager, opts ...Option) *Service {
	s := &Service{
		items:    items,
		logs:     logs,
		txm:      txm,
		cfg:      DefaultConfig(),
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// atomically runs fn as one unit, retrying it on Conflict.
func (s *Service) atomically(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return tx.RunWithRetry(ctx, s.txm, tx.RetryPolicy{
		MaxAttempts: s.cfg.MaxAttempts,
		OnRetry: func(ctx context.Context, attempt int, err error) {
			logger.Warn(ctx, "ledger unit conflicted, retrying",
				"op", op,
				"attempt", attempt,
				"error", err,
			)
		},
	}, fn)
}

// record appends the transaction and publishes it inside the current unit.
func (s *Service) record(ctx context.Context, t *Transaction) error {
	if t.NewRemaining != t.PreviousRemaining+t.TotalDelta {
		panic(fmt.Sprintf("ledger: transaction %s does not balance: %d + %d != %d",
			t.Type, t.PreviousRemaining, t.TotalDelta, t.NewRemaining))
	}
	if err := s.logs.AppendTransaction(ctx, t); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if s.events != nil {
		if err := s.events.PublishTransaction(ctx, t); err != nil {
			return fmt.Errorf("publish transaction: %w", err)
		}
	}
	return nil
}

func (s *Service) history(ctx context.Context, item *Item, action TransactionType, actorID string, at time.Time, details HistoryDetails) error {
	h := &HistoryRecord{
		ID:          id.New(),
		ItemID:      item.ID,
		WarehouseID: item.WarehouseID,
		Action:      action,
		ActorID:     actorID,
		Timestamp:   at,
		Details:     details,
	}
	if err := s.logs.AppendHistory(ctx, h); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// invalidate runs after commit; failures only leave stale stats behind.
func (s *Service) invalidate(ctx context.Context, warehouseIDs ...string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, warehouseIDs...); err != nil {
		logger.Warn(ctx, "stats invalidation failed", "warehouses", warehouseIDs, "error", err)
	}
}

func newTransaction(typ TransactionType, item *Item, before *Snapshot, actorID string, at time.Time) *Transaction {
	after := item.Remaining()
	return &Transaction{
		ID:                id.New(),
		Type:              typ,
		ItemID:            item.ID,
		WarehouseID:       item.WarehouseID,
		ItemName:          item.Name,
		ItemCode:          item.Code,
		CartonsDelta:      item.CartonsCount - before.Cartons,
		SingleDelta:       item.SingleBottlesCount - before.Singles,
		TotalDelta:        after - before.Remaining,
		PreviousRemaining: before.Remaining,
		NewRemaining:      after,
		ActorID:           actorID,
		Timestamp:         at,
	}
}

func (s *Service) touch(item *Item, actorID string, at time.Time) {
	item.UpdatedAt = at
	item.UpdatedBy = actorID
}

func ptr[T any](v T) *T { return &v }
