package ledger_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "item_transactions"
	historyTable      = "item_history"

	// DefaultCompressThreshold is the detail size above which history is stored compressed.
	DefaultCompressThreshold = 4 * 1024
)

var transactionColumns = []string{
	"id", "type", "item_id", "warehouse_id", "item_name", "item_code", "from_warehouse", "to_warehouse",
	"cartons_delta", "single_delta", "total_delta", "previous_remaining", "new_remaining",
	"destination", "priority", "actor_id", "created_at", "notes",
}

// CompressionAlgo is the encoding of a stored history detail payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

type historyRow struct {
	ID                id.ID                  `db:"id"`
	ItemID            id.ID                  `db:"item_id"`
	WarehouseID       string                 `db:"warehouse_id"`
	Action            ledger.TransactionType `db:"action"`
	ActorID           string                 `db:"actor_id"`
	Details           []byte                 `db:"details"`
	DetailsCompressed []byte                 `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo        `db:"compression_algo"`
	CreatedAt         time.Time              `db:"created_at"`
}

var _ ledger.LogRepository = (*LogRepo)(nil)

// LogRepo appends and reads item transactions and item history.
type LogRepo struct {
	txm               *postgres.TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewLogRepo creates a log repository. History details larger than
// compressThreshold bytes are stored zstd-compressed; 0 selects the default.
func NewLogRepo(txm *postgres.TxManager, compressThreshold int) (*LogRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &LogRepo{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// AppendTransaction inserts an audit transaction.
func (r *LogRepo) AppendTransaction(ctx context.Context, t *ledger.Transaction) error {
	sql, args, err := insertTransaction(t).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.Classify(fmt.Errorf("insert transaction: %w", err))
	}
	return nil
}

func insertTransaction(t *ledger.Transaction) squirrel.InsertBuilder {
	return builder().Insert(transactionsTable).
		Columns(transactionColumns...).
		Values(
			t.ID, t.Type, t.ItemID, t.WarehouseID, t.ItemName, t.ItemCode, t.FromWarehouse, t.ToWarehouse,
			t.CartonsDelta, t.SingleDelta, t.TotalDelta, t.PreviousRemaining, t.NewRemaining,
			t.Destination, t.Priority, t.ActorID, t.Timestamp, t.Notes,
		)
}

// AppendHistory inserts a history record, compressing large details.
func (r *LogRepo) AppendHistory(ctx context.Context, h *ledger.HistoryRecord) error {
	row, err := r.encode(h)
	if err != nil {
		return err
	}

	sql, args, err := builder().Insert(historyTable).
		Columns("id", "item_id", "warehouse_id", "action", "actor_id",
			"details", "details_compressed", "compression_algo", "created_at").
		Values(row.ID, row.ItemID, row.WarehouseID, row.Action, row.ActorID,
			row.Details, row.DetailsCompressed, row.CompressionAlgo, row.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.Classify(fmt.Errorf("insert history: %w", err))
	}
	return nil
}

func (r *LogRepo) encode(h *ledger.HistoryRecord) (historyRow, error) {
	details, err := json.Marshal(h.Details)
	if err != nil {
		return historyRow{}, fmt.Errorf("marshal history details: %w", err)
	}

	row := historyRow{
		ID:              h.ID,
		ItemID:          h.ItemID,
		WarehouseID:     h.WarehouseID,
		Action:          h.Action,
		ActorID:         h.ActorID,
		Details:         details,
		CompressionAlgo: CompressionNone,
		CreatedAt:       h.Timestamp,
	}
	if len(details) > r.compressThreshold {
		row.DetailsCompressed = r.encoder.EncodeAll(details, nil)
		row.Details = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row, nil
}

func (r *LogRepo) decode(row historyRow) (ledger.HistoryRecord, error) {
	details := row.Details
	if row.CompressionAlgo == CompressionZstd && len(row.DetailsCompressed) > 0 {
		decompressed, err := r.decoder.DecodeAll(row.DetailsCompressed, nil)
		if err != nil {
			return ledger.HistoryRecord{}, fmt.Errorf("decompress history details: %w", err)
		}
		details = decompressed
	}

	rec := ledger.HistoryRecord{
		ID:          row.ID,
		ItemID:      row.ItemID,
		WarehouseID: row.WarehouseID,
		Action:      row.Action,
		ActorID:     row.ActorID,
		Timestamp:   row.CreatedAt,
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return ledger.HistoryRecord{}, fmt.Errorf("unmarshal history details: %w", err)
		}
	}
	return rec, nil
}

// ListTransactions returns scope-filtered transactions, newest first.
func (r *LogRepo) ListTransactions(ctx context.Context, scope security.Scope, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	sql, args, err := selectTransactions(scope, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := make([]ledger.Transaction, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, postgres.Classify(fmt.Errorf("list transactions: %w", err))
	}
	return out, nil
}

func selectTransactions(scope security.Scope, filter ledger.TransactionFilter) squirrel.SelectBuilder {
	q := scoped(builder().Select(transactionColumns...).From(transactionsTable), scope)
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.WarehouseID != "" {
		q = q.Where(squirrel.Eq{"warehouse_id": filter.WarehouseID})
	}
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": filter.Type})
	}
	return q.OrderBy("created_at DESC", "id DESC").Limit(uint64(filter.Limit))
}

// ListHistory returns scope-filtered history of one item, newest first.
func (r *LogRepo) ListHistory(ctx context.Context, scope security.Scope, itemID id.ID, limit int) ([]ledger.HistoryRecord, error) {
	sql, args, err := scoped(builder().
		Select("id", "item_id", "warehouse_id", "action", "actor_id",
			"details", "details_compressed", "compression_algo", "created_at").
		From(historyTable).
		Where(squirrel.Eq{"item_id": itemID}), scope).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []historyRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, postgres.Classify(fmt.Errorf("list history: %w", err))
	}

	out := make([]ledger.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// scoped limits q to the scope's warehouses. An empty set matches nothing.
func scoped(q squirrel.SelectBuilder, scope security.Scope) squirrel.SelectBuilder {
	if scope.IsUnrestricted() {
		return q
	}
	warehouses := scope.Warehouses()
	if len(warehouses) == 0 {
		return q.Where("1 = 0")
	}
	return q.Where("warehouse_id = ANY(?)", warehouses)
}
