package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

type transactionHandler struct {
	engine *engine.Engine
}

func registerTransactionRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &transactionHandler{engine: e}

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.createTransaction)
		transactions.GET("", h.listTransactions)
		transactions.GET("/:id", h.getTransaction)
		transactions.DELETE("/:id", h.removeTransaction)
		transactions.POST("/:id/reconcile", h.setReconciled)
	}
}

// buildTransaction assembles an engine transaction from a request, resolving
// account and security references. The reminder handler reuses it for
// templates.
func buildTransaction(ctx context.Context, e *engine.Engine, req *dto.CreateTransactionRequest) (*engine.Transaction, error) {
	var t *engine.Transaction
	if req.Investment != nil {
		security, err := e.SecurityBySymbol(ctx, req.Investment.SecuritySymbol)
		if err != nil {
			return nil, err
		}
		account, err := e.AccountByUUID(ctx, req.Investment.AccountUUID)
		if err != nil {
			return nil, err
		}
		t = engine.NewInvestmentTransaction(req.Date, &engine.InvestmentDetail{
			Action:   engine.InvestmentAction(req.Investment.Action),
			Security: security,
			Account:  account,
			Price:    req.Investment.Price,
			Quantity: req.Investment.Quantity,
		})
	} else {
		t = engine.NewTransaction(req.Date)
	}
	t.SetNumber(req.Number)
	t.SetPayee(req.Payee)
	t.SetMemo(req.Memo)

	for _, er := range req.Entries {
		credit, err := e.AccountByUUID(ctx, er.CreditAccountUUID)
		if err != nil {
			return nil, err
		}
		debit, err := e.AccountByUUID(ctx, er.DebitAccountUUID)
		if err != nil {
			return nil, err
		}
		var entry *engine.TransactionEntry
		switch {
		case er.Amount != nil:
			entry = engine.NewTransactionEntry(credit, debit, *er.Amount)
		case er.CreditAmount != nil && er.DebitAmount != nil:
			entry = engine.NewMultiCurrencyEntry(credit, debit, *er.CreditAmount, *er.DebitAmount)
		default:
			return nil, fmt.Errorf("%w: entry needs either amount or both creditAmount and debitAmount", apperrors.ErrValidation)
		}
		entry.SetMemo(er.Memo)
		t.AddEntry(entry)
	}
	return t, nil
}

func (h *transactionHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	t, err := buildTransaction(c.Request.Context(), h.engine, &req)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if err := h.engine.AddTransaction(c.Request.Context(), t); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(t))
}

func (h *transactionHandler) listTransactions(c *gin.Context) {
	transactions, err := h.engine.TransactionList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionResponse(transactions))
}

func (h *transactionHandler) getTransaction(c *gin.Context) {
	t, err := h.engine.TransactionByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(t))
}

func (h *transactionHandler) removeTransaction(c *gin.Context) {
	t, err := h.engine.TransactionByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	if err := h.engine.RemoveTransaction(c.Request.Context(), t); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *transactionHandler) setReconciled(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	t, err := h.engine.TransactionByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	var req dto.SetReconciledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	account, err := h.engine.AccountByUUID(c.Request.Context(), req.AccountUUID)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if err := h.engine.SetTransactionReconciled(c.Request.Context(), t, account, engine.ReconciledState(req.State)); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(t))
}
