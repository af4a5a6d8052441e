package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type exchangeRateHandler struct {
	engine *engine.Engine
}

func registerExchangeRateRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &exchangeRateHandler{engine: e}

	rates := rg.Group("/exchange-rates")
	{
		rates.PUT("", h.setRate)
		rates.GET("", h.listRates)
		rates.GET("/query", h.queryRate)
	}
}

func (h *exchangeRateHandler) setRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SetExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	base, err := h.engine.CurrencyBySymbol(c.Request.Context(), req.BaseSymbol)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	counter, err := h.engine.CurrencyBySymbol(c.Request.Context(), req.CounterSymbol)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if err := h.engine.SetExchangeRate(c.Request.Context(), base, counter, req.Rate, req.Date); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.RateQueryResponse{
		FromSymbol: base.Symbol(),
		ToSymbol:   counter.Symbol(),
		Date:       req.Date,
		Rate:       req.Rate,
	})
}

func (h *exchangeRateHandler) listRates(c *gin.Context) {
	rates, err := h.engine.ExchangeRateList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	res := make([]dto.ExchangeRateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, dto.ToExchangeRateResponse(r))
	}
	c.JSON(http.StatusOK, res)
}

// queryRate answers "what did one unit of `from` buy in `to` on `date`".
// Date defaults to today.
func (h *exchangeRateHandler) queryRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	from, err := h.engine.CurrencyBySymbol(c.Request.Context(), c.Query("from"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	to, err := h.engine.CurrencyBySymbol(c.Request.Context(), c.Query("to"))
	if err != nil {
		respondError(c, logger, err)
		return
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		date, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
	}

	rate, ok := h.engine.ExchangeRateAsOf(c.Request.Context(), from, to, date)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No rate recorded for the pair on or before that date"})
		return
	}
	c.JSON(http.StatusOK, dto.RateQueryResponse{
		FromSymbol: from.Symbol(),
		ToSymbol:   to.Symbol(),
		Date:       date,
		Rate:       rate,
	})
}
