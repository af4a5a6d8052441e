package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type reminderHandler struct {
	engine *engine.Engine
}

func registerReminderRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &reminderHandler{engine: e}

	reminders := rg.Group("/reminders")
	{
		reminders.POST("", h.createReminder)
		reminders.GET("", h.listReminders)
		reminders.PATCH("/:id", h.updateReminder)
		reminders.DELETE("/:id", h.removeReminder)
		reminders.GET("/pending", h.listPending)
		reminders.POST("/pending/approve", h.approvePending)
		reminders.POST("/pending/dismiss", h.dismissPending)
	}
}

func (h *reminderHandler) resolve(c *gin.Context) *engine.Reminder {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reminders, err := h.engine.ReminderList(c.Request.Context())
	if err != nil {
		respondError(c, logger, err)
		return nil
	}
	id := c.Param("id")
	for _, r := range reminders {
		if r.UUID() == id {
			return r
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
	return nil
}

func (h *reminderHandler) createReminder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.engine.AccountByUUID(c.Request.Context(), req.AccountUUID)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	reminder := engine.NewReminder(account, engine.ReminderType(req.Type), req.StartDate)
	reminder.SetDescription(req.Description)
	reminder.SetAutoEnter(req.AutoEnter)
	if req.Increment > 0 {
		reminder.SetIncrement(req.Increment)
	}
	if req.EndDate != nil {
		reminder.SetEndDate(*req.EndDate)
	}
	if req.Template != nil {
		template, err := buildTransaction(c.Request.Context(), h.engine, req.Template)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		reminder.SetTemplate(template)
	}

	if err := h.engine.AddReminder(c.Request.Context(), reminder); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToReminderResponse(reminder))
}

func (h *reminderHandler) listReminders(c *gin.Context) {
	reminders, err := h.engine.ReminderList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListReminderResponse(reminders))
}

func (h *reminderHandler) updateReminder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reminder := h.resolve(c)
	if reminder == nil {
		return
	}
	var req dto.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if req.Description != nil {
		reminder.SetDescription(*req.Description)
	}
	if req.Enabled != nil {
		reminder.SetEnabled(*req.Enabled)
	}
	if req.AutoEnter != nil {
		reminder.SetAutoEnter(*req.AutoEnter)
	}
	if req.Increment != nil {
		reminder.SetIncrement(*req.Increment)
	}
	if req.EndDate != nil {
		reminder.SetEndDate(*req.EndDate)
	}
	if err := h.engine.UpdateReminder(c.Request.Context(), reminder); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToReminderResponse(reminder))
}

func (h *reminderHandler) removeReminder(c *gin.Context) {
	reminder := h.resolve(c)
	if reminder == nil {
		return
	}
	if err := h.engine.RemoveReminder(c.Request.Context(), reminder); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *reminderHandler) asOf(c *gin.Context) (time.Time, bool) {
	if raw := c.Query("asOf"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asOf date, expected YYYY-MM-DD"})
			return time.Time{}, false
		}
		return date, true
	}
	return time.Now(), true
}

func (h *reminderHandler) listPending(c *gin.Context) {
	asOf, ok := h.asOf(c)
	if !ok {
		return
	}
	pending, err := h.engine.PendingReminders(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	res := make([]dto.PendingReminderResponse, 0, len(pending))
	for _, p := range pending {
		res = append(res, dto.ToPendingReminderResponse(p))
	}
	c.JSON(http.StatusOK, res)
}

// findPending re-derives the due occurrences and matches the one the caller
// named. Occurrences have no identity of their own; the reminder plus the
// commit date pins one down.
func (h *reminderHandler) findPending(c *gin.Context, req *dto.ResolvePendingRequest) *engine.PendingReminder {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	asOf := req.CommitDate
	if req.AsOf != nil {
		asOf = *req.AsOf
	}
	pending, err := h.engine.PendingReminders(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, logger, err)
		return nil
	}
	for _, p := range pending {
		if p.Reminder() != nil && p.Reminder().UUID() == req.ReminderUUID && p.CommitDate().Equal(req.CommitDate) {
			return p
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "No pending occurrence matches that reminder and commit date"})
	return nil
}

func (h *reminderHandler) approvePending(c *gin.Context) {
	var req dto.ResolvePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pending := h.findPending(c, &req)
	if pending == nil {
		return
	}
	if err := h.engine.ApprovePendingReminder(c.Request.Context(), pending); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPendingReminderResponse(pending))
}

func (h *reminderHandler) dismissPending(c *gin.Context) {
	var req dto.ResolvePendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	pending := h.findPending(c, &req)
	if pending == nil {
		return
	}
	if err := h.engine.DismissPendingReminder(c.Request.Context(), pending); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPendingReminderResponse(pending))
}
