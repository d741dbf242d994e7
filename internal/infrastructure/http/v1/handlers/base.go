// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/result"
	"stockledger/internal/core/security"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The envelope is written by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Principal returns the principal snapshot set by middleware.Auth.
func (h *BaseHandler) Principal(c *gin.Context) (security.Principal, bool) {
	p, ok := security.GetPrincipal(c.Request.Context())
	if !ok {
		h.Error(c, apperror.NewUnauthorized("missing principal"))
	}
	return p, ok
}

// ActorID returns the acting user id.
func (h *BaseHandler) ActorID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	itemID, err := dto.ParseItemID(c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return itemID, false
	}
	return itemID, true
}

// OK sends 200 with a successful envelope.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, result.OK(data))
}

// Created sends 201 with a successful envelope.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, result.OK(data))
}
