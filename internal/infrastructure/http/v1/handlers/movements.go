package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// MovementsHandler handles dispatches and transfers.
type MovementsHandler struct {
	*BaseHandler
	ledger *ledger.Service
}

// NewMovementsHandler creates a new movements handler.
func NewMovementsHandler(base *BaseHandler, service *ledger.Service) *MovementsHandler {
	return &MovementsHandler{
		BaseHandler: base,
		ledger:      service,
	}
}

// Dispatch handles POST /dispatches
func (h *MovementsHandler) Dispatch(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.DispatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	out, err := h.ledger.Dispatch(c.Request.Context(), in, h.ActorID(c), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, out)
}

// Transfer handles POST /transfers
func (h *MovementsHandler) Transfer(c *gin.Context) {
	p, ok := h.Principal(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	out, err := h.ledger.Transfer(c.Request.Context(), in, h.ActorID(c), p)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, out)
}
