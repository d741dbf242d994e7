// Package dto defines request shapes of the HTTP API.
package dto

import (
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// --- Items ---

// AddItemRequest is the body of POST /items.
type AddItemRequest struct {
	ledger.ItemInput
	Mode ledger.AddMode `json:"mode" binding:"omitempty,oneof=addingCartons updatingPacking"`
}

// ToInput splits the request into the engine payload and the add mode.
func (r AddItemRequest) ToInput() (ledger.ItemInput, ledger.AddMode) {
	return r.ItemInput, r.Mode
}

// UpdateDetailsRequest is the body of PATCH /items/:id.
type UpdateDetailsRequest struct {
	ledger.DetailsUpdate
}

// ToUpdate returns the engine payload.
func (r UpdateDetailsRequest) ToUpdate() ledger.DetailsUpdate {
	return r.DetailsUpdate
}

// ListItemsQuery is the query of GET /items.
type ListItemsQuery struct {
	PageSize int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
	Cursor   string `form:"cursor"`
}

// HistoryQuery is the query of GET /items/:id/history.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// --- Movements ---

// quantity is the packed or explicit amount carried by movement requests.
type quantity struct {
	Quantity  *int64 `json:"quantity"`
	Cartons   int64  `json:"cartons"`
	PerCarton int64  `json:"perCarton"`
	Singles   int64  `json:"singles"`
}

// DispatchRequest is the body of POST /dispatches.
type DispatchRequest struct {
	ItemID          string `json:"itemId" binding:"required"`
	FromWarehouseID string `json:"fromWarehouseId"`
	Destination     string `json:"destination"`
	Priority        string `json:"priority"`
	Notes           string `json:"notes"`
	quantity
}

// ToInput converts the request to the engine payload.
func (r DispatchRequest) ToInput() (ledger.DispatchInput, error) {
	itemID, err := ParseItemID(r.ItemID)
	if err != nil {
		return ledger.DispatchInput{}, err
	}
	return ledger.DispatchInput{
		ItemID:          itemID,
		FromWarehouseID: r.FromWarehouseID,
		Destination:     r.Destination,
		Priority:        r.Priority,
		Notes:           r.Notes,
		Quantity:        r.Quantity,
		Cartons:         r.Cartons,
		PerCarton:       r.PerCarton,
		Singles:         r.Singles,
	}, nil
}

// TransferRequest is the body of POST /transfers.
type TransferRequest struct {
	ItemID          string `json:"itemId" binding:"required"`
	FromWarehouseID string `json:"fromWarehouseId"`
	ToWarehouseID   string `json:"toWarehouseId"`
	Notes           string `json:"notes"`
	quantity
}

// ToInput converts the request to the engine payload.
func (r TransferRequest) ToInput() (ledger.TransferInput, error) {
	itemID, err := ParseItemID(r.ItemID)
	if err != nil {
		return ledger.TransferInput{}, err
	}
	return ledger.TransferInput{
		ItemID:          itemID,
		FromWarehouseID: r.FromWarehouseID,
		ToWarehouseID:   r.ToWarehouseID,
		Notes:           r.Notes,
		Quantity:        r.Quantity,
		Cartons:         r.Cartons,
		PerCarton:       r.PerCarton,
		Singles:         r.Singles,
	}, nil
}

// --- Queries ---

// SearchQuery is the query of GET /search.
type SearchQuery struct {
	Term        string `form:"q"`
	WarehouseID string `form:"warehouseId"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// StatsQuery is the query of GET /stats.
type StatsQuery struct {
	WarehouseID string `form:"warehouseId"`
}

// TransactionsQuery is the query of GET /transactions.
type TransactionsQuery struct {
	ItemID      string `form:"itemId"`
	WarehouseID string `form:"warehouseId"`
	Type        string `form:"type" binding:"omitempty,oneof=ADD TRANSFER DISPATCH UPDATE DELETE"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToFilter converts the query to a ledger filter.
func (q TransactionsQuery) ToFilter() (ledger.TransactionFilter, error) {
	filter := ledger.TransactionFilter{
		WarehouseID: strings.TrimSpace(q.WarehouseID),
		Type:        ledger.TransactionType(q.Type),
		Limit:       q.Limit,
	}
	if q.ItemID != "" {
		itemID, err := ParseItemID(q.ItemID)
		if err != nil {
			return filter, err
		}
		filter.ItemID = &itemID
	}
	return filter, nil
}

// ParseItemID parses a path or body item id.
func ParseItemID(s string) (id.ID, error) {
	itemID, err := id.Parse(strings.TrimSpace(s))
	if err != nil {
		return id.ID{}, apperror.NewValidation("invalid item id").WithDetail("itemId", s)
	}
	return itemID, nil
}
