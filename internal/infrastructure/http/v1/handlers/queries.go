package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// QueriesHandler serves read-only views: search, stats and the transaction log.
type QueriesHandler struct {
	*BaseHandler
	ledger  *ledger.Service
	search  *search.Service
	reports *reports.Service
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(base *BaseHandler, ledgerService *ledger.Service, searchService *search.Service, reportsService *reports.Service) *QueriesHandler {
	return &QueriesHandler{
		BaseHandler: base,
		ledger:      ledgerService,
		search:      searchService,
		reports:     reportsService,
	}
}

// Search handles GET /search
func (h *QueriesHandler) Search(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var q dto.SearchQuery
	if !h.BindQuery(c, &q) {
		return
	}

	hits, err := h.search.Search(c.Request.Context(), q.Term, q.WarehouseID, q.Limit, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, hits)
}

// Stats handles GET /stats
func (h *QueriesHandler) Stats(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var q dto.StatsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	stats, err := h.reports.GetWarehouseStats(c.Request.Context(), q.WarehouseID, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stats)
}

// Transactions handles GET /transactions
func (h *QueriesHandler) Transactions(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var q dto.TransactionsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	txs, err := h.ledger.ListTransactions(c.Request.Context(), filter, p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, txs)
}
