// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// Tokens validates bearer tokens
	Tokens middleware.TokenValidator

	// Store is probed by the readiness endpoint
	Store handlers.Pinger

	Ledger  *ledger.Service
	Search  *search.Service
	Reports *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Tokens))
	{
		base := handlers.NewBaseHandler()
		registerItemRoutes(v1, handlers.NewItemsHandler(base, cfg.Ledger, cfg.Search))
		registerMovementRoutes(v1, handlers.NewMovementsHandler(base, cfg.Ledger))
		registerQueryRoutes(v1, handlers.NewQueriesHandler(base, cfg.Ledger, cfg.Search, cfg.Reports))
	}

	return router
}

func registerItemRoutes(rg *gin.RouterGroup, h *handlers.ItemsHandler) {
	items := rg.Group("/items")
	items.GET("", h.List)
	items.POST("", h.AddOrUpdate)
	items.GET("/:id", h.Get)
	items.PATCH("/:id", h.UpdateDetails)
	items.DELETE("/:id", h.Delete)
	items.GET("/:id/history", h.History)
}

func registerMovementRoutes(rg *gin.RouterGroup, h *handlers.MovementsHandler) {
	rg.POST("/dispatches", h.Dispatch)
	rg.POST("/transfers", h.Transfer)
}

func registerQueryRoutes(rg *gin.RouterGroup, h *handlers.QueriesHandler) {
	rg.GET("/search", h.Search)
	rg.GET("/stats", h.Stats)
	rg.GET("/transactions", h.Transactions)
}
