package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/ledger"
)

func TestDeleteItemWritesCompensatingTransaction(t *testing.T) {
	ctx := context.Background()
	inv := &invalidations{}
	svc, store := newEngine(t, ledger.WithInvalidator(inv))
	item := seedItem(t, svc, "W1", 2)
	_, err := svc.Dispatch(ctx, ledger.DispatchInput{
		ItemID: item.ID, FromWarehouseID: "W1", Destination: "sale", Quantity: int64p(3),
	}, "u1", admin)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteItem(ctx, item.ID, "u1", admin))

	_, err = store.GetByID(ctx, item.ID)
	assert.True(t, apperror.IsNotFound(err))

	txs := store.TransactionsFor(item.ID)
	require.Len(t, txs, 3)
	last := txs[2]
	assert.Equal(t, ledger.TransactionDelete, last.Type)
	assert.Equal(t, int64(21), last.PreviousRemaining)
	assert.Equal(t, int64(-21), last.TotalDelta)
	assert.Equal(t, int64(-1), last.CartonsDelta)
	assert.Equal(t, int64(-9), last.SingleDelta)
	assert.Zero(t, last.NewRemaining)
	assertConserved(t, store, item.ID, 0)

	history, err := svc.GetItemHistory(ctx, item.ID, 10, admin)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ledger.TransactionDelete, history[0].Action)
	assert.Equal(t, int64(21), history[0].Details.Before.Remaining)

	assert.Contains(t, inv.warehouses, "W1")

	err = svc.DeleteItem(ctx, item.ID, "u1", admin)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteRequiresCapability(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEngine(t)
	item := seedItem(t, svc, "W1", 1)

	editor := security.Principal{
		Role:              security.RoleWarehouseManager,
		AllowedWarehouses: []string{"W1"},
		Permissions:       []string{string(security.CapabilityEdit)},
	}
	err := svc.DeleteItem(ctx, item.ID, "e1", editor)
	assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))

	editor.Permissions = append(editor.Permissions, string(security.CapabilityDelete))
	require.NoError(t, svc.DeleteItem(ctx, item.ID, "e1", editor))
}

func TestUpdateItemDetails(t *testing.T) {
	ctx := context.Background()
	svc, store := newEngine(t)
	created, err := svc.AddOrUpdateItem(ctx, itemX("W1", 2, 12, int64p(6)), "u1", admin, ledger.ModeAddCartons)
	require.NoError(t, err)
	itemID := created.Item.ID

	err = svc.UpdateItemDetails(ctx, itemID, ledger.DetailsUpdate{
		Supplier:       strp("  Nile Water  "),
		ItemLocation:   strp("Aisle 2"),
		PerCartonCount: int64p(10),
	}, "u2", admin)
	require.NoError(t, err)

	got := assertPacked(t, store, itemID)
	assert.Equal(t, "Nile Water", got.Supplier)
	assert.Equal(t, "Aisle 2", got.ItemLocation)
	assert.Equal(t, int64(30), got.Remaining(), "remaining is unchanged")
	assert.Equal(t, int64(10), got.PerCartonCount)
	assert.Equal(t, int64(3), got.CartonsCount)
	assert.Equal(t, int64(0), got.SingleBottlesCount)
	assert.Equal(t, "u2", got.UpdatedBy)

	history, err := svc.GetItemHistory(ctx, itemID, 0, admin)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	fields := history[0].Details.Fields
	assert.Equal(t, ledger.FieldChange{Old: "", New: "Nile Water"}, fields["supplier"])
	assert.Equal(t, ledger.FieldChange{Old: "12", New: "10"}, fields["perCartonCount"])

	txs := store.TransactionsFor(itemID)
	assert.Equal(t, ledger.TransactionUpdate, txs[len(txs)-1].Type)
	assert.Zero(t, txs[len(txs)-1].TotalDelta)
	assertConserved(t, store, itemID, 30)
}

func TestUpdateItemDetailsValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEngine(t)
	item := seedItem(t, svc, "W1", 1)

	err := svc.UpdateItemDetails(ctx, item.ID, ledger.DetailsUpdate{}, "u1", admin)
	assert.Equal(t, apperror.CodeValidation, apperror.Kind(err))

	err = svc.UpdateItemDetails(ctx, item.ID, ledger.DetailsUpdate{PerCartonCount: int64p(0)}, "u1", admin)
	assert.Equal(t, apperror.CodeValidation, apperror.Kind(err))
}

func TestReadOperationsAreScoped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEngine(t)
	a := seedItem(t, svc, "A", 1)
	b := seedItem(t, svc, "B", 1)

	viewer := security.Principal{Role: security.RoleUser, AllowedWarehouses: []string{"A"}}

	got, err := svc.GetItem(ctx, a.ID, viewer)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.GetItem(ctx, b.ID, viewer)
	assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))

	txs, err := svc.ListTransactions(ctx, ledger.TransactionFilter{}, viewer)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "A", txs[0].WarehouseID)

	_, err = svc.ListTransactions(ctx, ledger.TransactionFilter{WarehouseID: "B"}, viewer)
	assert.Equal(t, apperror.CodeForbidden, apperror.Kind(err))

	_, err = svc.ListTransactions(ctx, ledger.TransactionFilter{Type: "REFUND"}, admin)
	assert.Equal(t, apperror.CodeValidation, apperror.Kind(err))

	history, err := svc.GetItemHistory(ctx, b.ID, 10, viewer)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEventsPublishedWithTransactions(t *testing.T) {
	ctx := context.Background()
	svc, store := newEngine(t)
	item := seedItem(t, svc, "W1", 2)
	_, err := svc.Transfer(ctx, ledger.TransferInput{
		ItemID: item.ID, FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: int64p(4),
	}, "u1", admin)
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 3)
	assert.Equal(t, ledger.TransactionAdd, events[0].Transaction.Type)
	assert.Equal(t, int64(-4), events[1].Transaction.TotalDelta)
	assert.Equal(t, int64(4), events[2].Transaction.TotalDelta)
}
