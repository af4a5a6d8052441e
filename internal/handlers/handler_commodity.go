package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type commodityHandler struct {
	engine *engine.Engine
}

func registerCommodityRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &commodityHandler{engine: e}

	currencies := rg.Group("/currencies")
	{
		currencies.POST("", h.createCurrency)
		currencies.POST("/defaults", h.seedDefaultCurrencies)
		currencies.GET("", h.listCurrencies)
		currencies.GET("/:symbol", h.getCurrency)
		currencies.DELETE("/:symbol", h.removeCurrency)
		currencies.PUT("/:symbol/default", h.setDefaultCurrency)
	}

	securities := rg.Group("/securities")
	{
		securities.POST("", h.createSecurity)
		securities.GET("", h.listSecurities)
		securities.GET("/:symbol", h.getSecurity)
		securities.DELETE("/:symbol", h.removeSecurity)
		securities.POST("/:symbol/history", h.addSecurityHistory)
		securities.DELETE("/:symbol/history/:date", h.removeSecurityHistory)
		securities.GET("/:symbol/price", h.marketPrice)
	}
}

func (h *commodityHandler) createCurrency(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	node := engine.NewCurrencyNode(req.Symbol, req.Scale)
	node.SetDescription(req.Description)
	node.SetPrefix(req.Prefix)
	node.SetSuffix(req.Suffix)

	if err := h.engine.AddCurrency(c.Request.Context(), node); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCurrencyResponse(node))
}

// seedDefaultCurrencies registers the common ISO currency list, skipping
// any symbol the ledger already knows. Idempotent.
func (h *commodityHandler) seedDefaultCurrencies(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	created := make([]dto.CurrencyResponse, 0)
	for _, node := range engine.DefaultCurrencies() {
		err := h.engine.AddCurrency(c.Request.Context(), node)
		if errors.Is(err, apperrors.ErrDuplicate) {
			continue
		}
		if err != nil {
			respondError(c, logger, err)
			return
		}
		created = append(created, dto.ToCurrencyResponse(node))
	}
	c.JSON(http.StatusCreated, created)
}

func (h *commodityHandler) listCurrencies(c *gin.Context) {
	currencies, err := h.engine.CurrencyList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListCurrencyResponse(currencies))
}

func (h *commodityHandler) getCurrency(c *gin.Context) {
	node, err := h.engine.CurrencyBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCurrencyResponse(node))
}

func (h *commodityHandler) removeCurrency(c *gin.Context) {
	node, err := h.engine.CurrencyBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	if err := h.engine.RemoveCurrency(c.Request.Context(), node); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *commodityHandler) setDefaultCurrency(c *gin.Context) {
	node, err := h.engine.CurrencyBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	if err := h.engine.SetDefaultCurrency(c.Request.Context(), node); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCurrencyResponse(node))
}

func (h *commodityHandler) createSecurity(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	currency, err := h.engine.CurrencyBySymbol(c.Request.Context(), req.CurrencySymbol)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	node := engine.NewSecurityNode(req.Symbol, req.Scale, currency)
	node.SetDescription(req.Description)
	node.SetQuoteSource(req.QuoteSource)

	if err := h.engine.AddSecurity(c.Request.Context(), node); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToSecurityResponse(node))
}

func (h *commodityHandler) listSecurities(c *gin.Context) {
	securities, err := h.engine.SecurityList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListSecurityResponse(securities))
}

func (h *commodityHandler) getSecurity(c *gin.Context) {
	node, err := h.engine.SecurityBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToSecurityResponse(node))
}

func (h *commodityHandler) removeSecurity(c *gin.Context) {
	node, err := h.engine.SecurityBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	if err := h.engine.RemoveSecurity(c.Request.Context(), node); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *commodityHandler) addSecurityHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	node, err := h.engine.SecurityBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	var req dto.SecurityHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	history := engine.NewSecurityHistoryNode(req.Date, req.Price)
	history.SetHigh(req.High)
	history.SetLow(req.Low)
	history.SetVolume(req.Volume)

	if err := h.engine.AddSecurityHistory(c.Request.Context(), node, history); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToSecurityResponse(node))
}

func (h *commodityHandler) removeSecurityHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	node, err := h.engine.SecurityBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	date, err := time.Parse(time.DateOnly, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if err := h.engine.RemoveSecurityHistory(c.Request.Context(), node, date); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// marketPrice resolves the security's price on a date in a target currency,
// falling back from recorded history to traded prices in the named
// investment account.
func (h *commodityHandler) marketPrice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	node, err := h.engine.SecurityBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	account, err := h.engine.AccountByUUID(c.Request.Context(), c.Query("account"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	currency := h.engine.DefaultCurrency()
	if symbol := c.Query("currency"); symbol != "" {
		currency, err = h.engine.CurrencyBySymbol(c.Request.Context(), symbol)
		if err != nil {
			respondError(c, logger, err)
			return
		}
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
	}

	price := h.engine.SecurityMarketPrice(account, node, currency, date)
	c.JSON(http.StatusOK, dto.SecurityPriceResponse{
		SecuritySymbol: node.Symbol(),
		CurrencySymbol: currency.Symbol(),
		Date:           date,
		Price:          price,
	})
}
