package ledger_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/search"
)

func TestScoped(t *testing.T) {
	base := builder().Select("id").From(itemsTable)

	tests := []struct {
		name     string
		scope    security.Scope
		wantSQL  string
		wantArgs int
	}{
		{"unrestricted", security.Unrestricted(), "SELECT id FROM items", 0},
		{"warehouse set", security.WarehouseSet("w1", "w2"), "SELECT id FROM items WHERE warehouse_id = ANY($1)", 1},
		{"empty set", security.WarehouseSet(), "SELECT id FROM items WHERE 1 = 0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := scoped(base, tt.scope).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.wantArgs)
		})
	}
}

func TestFindByKeyQuery(t *testing.T) {
	q := builder().Select("id").From(itemsTable).
		Where(keyCondition(ledger.BusinessKey{Name: "Oil", Code: "X1", Color: "", WarehouseID: "w1"})).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM items WHERE code = $1 AND color = $2 AND name = $3 AND warehouse_id = $4 FOR UPDATE", sql)
	assert.Equal(t, []any{"X1", "", "Oil", "w1"}, args)
}

func TestUpdateItemChecksVersion(t *testing.T) {
	remaining := int64(26)
	item := &ledger.Item{
		ID:                 id.New(),
		CartonsCount:       2,
		PerCartonCount:     12,
		SingleBottlesCount: 2,
		RemainingQuantity:  &remaining,
		Version:            4,
		UpdatedAt:          time.Now(),
	}

	sql, args, err := updateItem(item).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "UPDATE items SET cartons_count = $1"))
	assert.Contains(t, sql, "version = version + 1")
	assert.True(t, strings.HasSuffix(sql, "WHERE id = $13 AND version = $14"), sql)
	assert.Equal(t, item.ID, args[12])
	assert.Equal(t, 4, args[13])
	assert.Equal(t, []string{}, args[1], "nil external codes are stored as an empty array")
}

func TestInsertItemColumns(t *testing.T) {
	sql, args, err := insertItem(&ledger.Item{ID: id.New(), Name: "Oil", PerCartonCount: 12, Version: 1}).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO items (id,name,code,color,warehouse_id,"))
	assert.Len(t, args, len(itemColumns))
}

func TestPageQuery(t *testing.T) {
	after := &search.Cursor{Name: "Oil", ID: id.New()}

	sql, args, err := pageQuery(builder().Select("id").From(itemsTable), security.WarehouseSet("w1"), after, 20).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM items WHERE warehouse_id = ANY($1) AND (name, id) > ($2, $3) ORDER BY name, id LIMIT 20", sql)
	assert.Equal(t, []any{[]string{"w1"}, "Oil", after.ID}, args)

	sql, _, err = pageQuery(builder().Select("id").From(itemsTable), security.Unrestricted(), nil, 5).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM items ORDER BY name, id LIMIT 5", sql)
}

func TestTotalsQuery(t *testing.T) {
	sql, args, err := totalsQuery([]string{"w1"}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "COUNT(*) AS item_count")
	assert.Contains(t, sql, "FILTER (WHERE "+remainingExpr+" = 0) AS out_of_stock")
	assert.Contains(t, sql, "WHERE warehouse_id = ANY($1) GROUP BY warehouse_id")
	assert.Len(t, args, 1)

	sql, args, err = totalsQuery(nil).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "ANY")
	assert.Empty(t, args)
}

func TestSelectTransactions(t *testing.T) {
	itemID := id.New()
	filter := ledger.TransactionFilter{ItemID: &itemID, Type: ledger.TransactionDispatch, Limit: 50}

	sql, args, err := selectTransactions(security.WarehouseSet("w1"), filter).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM item_transactions WHERE warehouse_id = ANY($1) AND item_id = $2 AND type = $3")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY created_at DESC, id DESC LIMIT 50"), sql)
	assert.Equal(t, []any{[]string{"w1"}, itemID, ledger.TransactionDispatch}, args)
}
