package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/result"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// ItemsHandler handles item lifecycle requests.
type ItemsHandler struct {
	*BaseHandler
	ledger *ledger.Service
	search *search.Service
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(base *BaseHandler, ledgerService *ledger.Service, searchService *search.Service) *ItemsHandler {
	return &ItemsHandler{
		BaseHandler: base,
		ledger:      ledgerService,
		search:      searchService,
	}
}

// AddOrUpdate handles POST /items
func (h *ItemsHandler) AddOrUpdate(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.AddItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, mode := req.ToInput()
	out, err := h.ledger.AddOrUpdateItem(c.Request.Context(), in, h.ActorID(c), p, mode)
	if err != nil {
		h.Error(c, err)
		return
	}

	if out.Status == ledger.StatusCreated {
		h.Created(c, out)
		return
	}
	h.OK(c, out)
}

// Get handles GET /items/:id
func (h *ItemsHandler) Get(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}
	itemID, ok := h.PathID(c)
	if !ok {
		return
	}

	item, err := h.ledger.GetItem(c.Request.Context(), itemID, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// List handles GET /items
func (h *ItemsHandler) List(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var q dto.ListItemsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.search.ListAll(c.Request.Context(), q.PageSize, q.Cursor, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, page)
}

// UpdateDetails handles PATCH /items/:id
func (h *ItemsHandler) UpdateDetails(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}
	itemID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req dto.UpdateDetailsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := h.ledger.UpdateItemDetails(ctx, itemID, req.ToUpdate(), h.ActorID(c), p); err != nil {
		h.Error(c, err)
		return
	}

	item, err := h.ledger.GetItem(ctx, itemID, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Delete handles DELETE /items/:id
func (h *ItemsHandler) Delete(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}
	itemID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.ledger.DeleteItem(c.Request.Context(), itemID, h.ActorID(c), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result.Void{})
}

// History handles GET /items/:id/history
func (h *ItemsHandler) History(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}
	itemID, ok := h.PathID(c)
	if !ok {
		return
	}

	var q dto.HistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}

	records, err := h.ledger.GetItemHistory(c.Request.Context(), itemID, q.Limit, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, records)
}
