package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type budgetHandler struct {
	engine *engine.Engine
}

func registerBudgetRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &budgetHandler{engine: e}

	budgets := rg.Group("/budgets")
	{
		budgets.POST("", h.createBudget)
		budgets.GET("", h.listBudgets)
		budgets.GET("/:id", h.getBudget)
		budgets.PATCH("/:id", h.updateBudget)
		budgets.DELETE("/:id", h.removeBudget)
		budgets.PUT("/:id/goals", h.updateGoals)
	}
}

func (h *budgetHandler) resolve(c *gin.Context) *engine.Budget {
	budget, err := h.engine.BudgetByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return nil
	}
	return budget
}

func (h *budgetHandler) createBudget(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	budget := engine.NewBudget(req.Name, engine.BudgetPeriod(req.Period))
	budget.SetDescription(req.Description)

	if err := h.engine.AddBudget(c.Request.Context(), budget); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToBudgetResponse(budget))
}

func (h *budgetHandler) listBudgets(c *gin.Context) {
	budgets, err := h.engine.BudgetList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListBudgetResponse(budgets))
}

func (h *budgetHandler) getBudget(c *gin.Context) {
	budget := h.resolve(c)
	if budget == nil {
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}

func (h *budgetHandler) updateBudget(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	budget := h.resolve(c)
	if budget == nil {
		return
	}
	var req dto.UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if req.Name != nil {
		budget.SetName(*req.Name)
	}
	if req.Description != nil {
		budget.SetDescription(*req.Description)
	}
	if err := h.engine.UpdateBudget(c.Request.Context(), budget); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}

func (h *budgetHandler) removeBudget(c *gin.Context) {
	budget := h.resolve(c)
	if budget == nil {
		return
	}
	if err := h.engine.RemoveBudget(c.Request.Context(), budget); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *budgetHandler) updateGoals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	budget := h.resolve(c)
	if budget == nil {
		return
	}
	var req dto.UpdateBudgetGoalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	account, err := h.engine.AccountByUUID(c.Request.Context(), req.AccountUUID)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	goal := engine.NewBudgetGoal(engine.BudgetPeriod(req.Period))
	for i, amount := range req.Amounts {
		goal.SetAmount(i, amount)
	}

	if err := h.engine.UpdateBudgetGoals(c.Request.Context(), budget, account, goal); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBudgetResponse(budget))
}
