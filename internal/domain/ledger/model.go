// Package ledger is the inventory ledger and transaction engine.
//
// Every stock-changing operation runs as one atomic unit over the item rows it
// touches, the audit transactions it appends and the history records it
// appends. The service keeps no state of its own between calls.
package ledger

import (
	"fmt"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// BusinessKey identifies "the same" stock-keeping unit at a warehouse.
type BusinessKey struct {
	Name        string
	Code        string
	Color       string
	WarehouseID string
}

// Item is one stock-keeping unit at one warehouse.
type Item struct {
	ID          id.ID  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Code        string `db:"code" json:"code"`
	Color       string `db:"color" json:"color"`
	WarehouseID string `db:"warehouse_id" json:"warehouseId"`

	CartonsCount       int64 `db:"cartons_count" json:"cartonsCount"`
	PerCartonCount     int64 `db:"per_carton_count" json:"perCartonCount"`
	SingleBottlesCount int64 `db:"single_bottles_count" json:"singleBottlesCount"`
	// RemainingQuantity is nil for rows written before the canonical field existed.
	RemainingQuantity *int64 `db:"remaining_quantity" json:"remainingQuantity,omitempty"`
	TotalAdded        int64  `db:"total_added" json:"totalAdded"`

	Supplier       string   `db:"supplier" json:"supplier,omitempty"`
	ItemLocation   string   `db:"item_location" json:"itemLocation,omitempty"`
	Notes          string   `db:"notes" json:"notes,omitempty"`
	PhotoReference string   `db:"photo_reference" json:"photoReference,omitempty"`
	ExternalCodes  []string `db:"external_codes" json:"externalCodes,omitempty"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// Key returns the business key of the item.
func (i *Item) Key() BusinessKey {
	return BusinessKey{Name: i.Name, Code: i.Code, Color: i.Color, WarehouseID: i.WarehouseID}
}

// Remaining returns the canonical stock level. Legacy rows derive it from packing.
func (i *Item) Remaining() int64 {
	if i.RemainingQuantity != nil {
		return *i.RemainingQuantity
	}
	return types.TotalQuantity(i.CartonsCount, i.PerCartonCount, i.SingleBottlesCount)
}

// IsLegacy reports whether the item predates the canonical remaining field.
func (i *Item) IsLegacy() bool {
	return i.RemainingQuantity == nil
}

// Packing returns the packed triple.
func (i *Item) Packing() types.Packing {
	return types.Packing{Cartons: i.CartonsCount, PerCarton: i.PerCartonCount, Singles: i.SingleBottlesCount}
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	c := *i
	if i.RemainingQuantity != nil {
		r := *i.RemainingQuantity
		c.RemainingQuantity = &r
	}
	if i.ExternalCodes != nil {
		c.ExternalCodes = append([]string(nil), i.ExternalCodes...)
	}
	return &c
}

// setPacking stores a normalized packed triple and the matching remaining quantity.
func (i *Item) setPacking(cartons, perCarton, singles int64) {
	i.PerCartonCount = perCarton
	i.CartonsCount, i.SingleBottlesCount = types.NormalizePacking(cartons, perCarton, singles)
	total := types.TotalQuantity(i.CartonsCount, i.PerCartonCount, i.SingleBottlesCount)
	i.RemainingQuantity = &total
}

// setRemaining stores quantity and re-derives cartons and singles from it.
// Legacy rows keep only the packed form.
func (i *Item) setRemaining(quantity int64) {
	i.CartonsCount, i.SingleBottlesCount = types.Decompose(quantity, i.PerCartonCount)
	if i.IsLegacy() {
		return
	}
	i.RemainingQuantity = &quantity
}

// mustBeConsistent panics when the packing invariants do not hold.
// A violation here is a bug in the engine, never a caller error.
func (i *Item) mustBeConsistent() {
	if i.PerCartonCount <= 0 {
		panic(fmt.Sprintf("ledger: item %s has per-carton count %d", i.ID, i.PerCartonCount))
	}
	if i.SingleBottlesCount >= i.PerCartonCount || i.SingleBottlesCount < 0 || i.CartonsCount < 0 {
		panic(fmt.Sprintf("ledger: item %s packing not normalized: %+v", i.ID, i.Packing()))
	}
	if packed := i.Packing().Total(); packed != i.Remaining() {
		panic(fmt.Sprintf("ledger: item %s remaining %d does not match packing %d", i.ID, i.Remaining(), packed))
	}
}

// TransactionType is the kind of an audit transaction.
type TransactionType string

const (
	TransactionAdd      TransactionType = "ADD"
	TransactionTransfer TransactionType = "TRANSFER"
	TransactionDispatch TransactionType = "DISPATCH"
	TransactionUpdate   TransactionType = "UPDATE"
	TransactionDelete   TransactionType = "DELETE"
)

// Valid reports whether t is a known type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionAdd, TransactionTransfer, TransactionDispatch, TransactionUpdate, TransactionDelete:
		return true
	}
	return false
}

// Transaction is an append-only audit log entry.
// NewRemaining == PreviousRemaining + TotalDelta for every record.
type Transaction struct {
	ID     id.ID           `db:"id" json:"id"`
	Type   TransactionType `db:"type" json:"type"`
	ItemID id.ID           `db:"item_id" json:"itemId"`
	// WarehouseID is the warehouse of the item whose stock the record describes.
	WarehouseID   string  `db:"warehouse_id" json:"warehouseId"`
	ItemName      string  `db:"item_name" json:"itemName"`
	ItemCode      string  `db:"item_code" json:"itemCode"`
	FromWarehouse *string `db:"from_warehouse" json:"fromWarehouse,omitempty"`
	ToWarehouse   *string `db:"to_warehouse" json:"toWarehouse,omitempty"`

	CartonsDelta      int64 `db:"cartons_delta" json:"cartonsDelta"`
	SingleDelta       int64 `db:"single_delta" json:"singleDelta"`
	TotalDelta        int64 `db:"total_delta" json:"totalDelta"`
	PreviousRemaining int64 `db:"previous_remaining" json:"previousRemaining"`
	NewRemaining      int64 `db:"new_remaining" json:"newRemaining"`

	Destination string    `db:"destination" json:"destination,omitempty"`
	Priority    string    `db:"priority" json:"priority,omitempty"`
	ActorID     string    `db:"actor_id" json:"actorId"`
	Timestamp   time.Time `db:"created_at" json:"timestamp"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
}

// Snapshot is the stock state of an item at one point of a mutation.
type Snapshot struct {
	Cartons    int64 `json:"cartons"`
	PerCarton  int64 `json:"perCarton"`
	Singles    int64 `json:"singles"`
	Remaining  int64 `json:"remaining"`
	TotalAdded int64 `json:"totalAdded"`
}

func snapshotOf(i *Item) *Snapshot {
	return &Snapshot{
		Cartons:    i.CartonsCount,
		PerCarton:  i.PerCartonCount,
		Singles:    i.SingleBottlesCount,
		Remaining:  i.Remaining(),
		TotalAdded: i.TotalAdded,
	}
}

// FieldChange is the old and new value of a descriptive field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// HistoryDetails is the before/after detail of one mutation.
type HistoryDetails struct {
	Before           *Snapshot              `json:"before,omitempty"`
	After            *Snapshot              `json:"after,omitempty"`
	QuantityDelta    int64                  `json:"quantityDelta"`
	AddedQuantity    int64                  `json:"addedQuantity,omitempty"`
	ConvertedCartons int64                  `json:"convertedCartons,omitempty"`
	Fields           map[string]FieldChange `json:"fields,omitempty"`
	Counterpart      string                 `json:"counterpartWarehouse,omitempty"`
	Destination      string                 `json:"destination,omitempty"`
	Notes            string                 `json:"notes,omitempty"`
}

// HistoryRecord is an append-only forensic record of one mutation of one item.
type HistoryRecord struct {
	ID          id.ID           `json:"id"`
	ItemID      id.ID           `json:"itemId"`
	WarehouseID string          `json:"warehouseId"`
	Action      TransactionType `json:"action"`
	ActorID     string          `json:"actorId"`
	Timestamp   time.Time       `json:"timestamp"`
	Details     HistoryDetails  `json:"details"`
}
