package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type systemHandler struct {
	engine *engine.Engine
}

func registerSystemRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &systemHandler{engine: e}

	rg.GET("/trash", h.listTrash)
	rg.DELETE("/trash", h.emptyTrash)
	rg.GET("/preferences/:key", h.getPreference)
	rg.PUT("/preferences/:key", h.setPreference)
}

func (h *systemHandler) listTrash(c *gin.Context) {
	trash, err := h.engine.TrashObjects(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	res := make([]dto.TrashObjectResponse, 0, len(trash))
	for _, t := range trash {
		res = append(res, dto.ToTrashObjectResponse(t))
	}
	c.JSON(http.StatusOK, res)
}

func (h *systemHandler) emptyTrash(c *gin.Context) {
	if err := h.engine.EmptyTrash(c.Request.Context()); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *systemHandler) getPreference(c *gin.Context) {
	key := c.Param("key")
	value, err := h.engine.Preference(c.Request.Context(), key)
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	if value == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Preference not set"})
		return
	}
	c.JSON(http.StatusOK, dto.PreferenceResponse{Key: key, Value: value})
}

func (h *systemHandler) setPreference(c *gin.Context) {
	var req dto.SetPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	key := c.Param("key")
	if err := h.engine.SetPreference(c.Request.Context(), key, req.Value); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.PreferenceResponse{Key: key, Value: req.Value})
}
