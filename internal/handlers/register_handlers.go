package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/engine"
)

// RegisterRoutes mounts the ledger API under /api/v1. Handlers call the
// engine facade directly; it owns locking and persistence.
func RegisterRoutes(r *gin.Engine, e *engine.Engine) {
	registerValidators()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": e.Name()})
	})

	v1 := r.Group("/api/v1")

	registerAccountRoutes(v1, e)
	registerTransactionRoutes(v1, e)
	registerCommodityRoutes(v1, e)
	registerExchangeRateRoutes(v1, e)
	registerBudgetRoutes(v1, e)
	registerReminderRoutes(v1, e)
	registerSystemRoutes(v1, e)
}
