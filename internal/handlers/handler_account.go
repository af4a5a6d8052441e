package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ranlab/jgnash/internal/dto"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/middleware"
)

// accountHandler handles HTTP requests for the account hierarchy.
type accountHandler struct {
	engine *engine.Engine
}

func registerAccountRoutes(rg *gin.RouterGroup, e *engine.Engine) {
	h := &accountHandler{engine: e}

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.PATCH("/:id", h.modifyAccount)
		accounts.DELETE("/:id", h.removeAccount)
		accounts.POST("/:id/move", h.moveAccount)
		accounts.PUT("/:id/attributes", h.setAttribute)
		accounts.GET("/:id/transactions", h.listAccountTransactions)
		accounts.GET("/:id/balance", h.balance)
		accounts.GET("/:id/tree-balance", h.treeBalance)
	}
}

func (h *accountHandler) resolve(c *gin.Context) *engine.Account {
	account, err := h.engine.AccountByUUID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return nil
	}
	return account
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	currency, err := h.engine.CurrencyBySymbol(c.Request.Context(), req.CurrencySymbol)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	parent := h.engine.RootAccount()
	if req.ParentUUID != "" {
		parent, err = h.engine.AccountByUUID(c.Request.Context(), req.ParentUUID)
		if err != nil {
			respondError(c, logger, err)
			return
		}
	}

	account := engine.NewAccount(engine.AccountType(req.AccountType), currency)
	account.SetName(req.Name)
	account.SetDescription(req.Description)
	account.SetNotes(req.Notes)
	account.SetCode(req.Code)
	account.SetAccountNumber(req.AccountNumber)
	account.SetBankID(req.BankID)

	if err := h.engine.AddAccount(c.Request.Context(), parent, account); err != nil {
		respondError(c, logger, err)
		return
	}

	logger.Info("Account created", slog.String("account", account.UUID()))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account, h.engine.AccountPath(account)))
}

func (h *accountHandler) listAccounts(c *gin.Context) {
	accounts, err := h.engine.AccountList(c.Request.Context())
	if err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	res := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		res = append(res, dto.ToAccountResponse(a, h.engine.AccountPath(a)))
	}
	c.JSON(http.StatusOK, res)
}

func (h *accountHandler) getAccount(c *gin.Context) {
	account := h.resolve(c)
	if account == nil {
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account, h.engine.AccountPath(account)))
}

func (h *accountHandler) modifyAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	account := h.resolve(c)
	if account == nil {
		return
	}

	var req dto.ModifyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Visible != nil {
		if err := h.engine.SetAccountVisibility(ctx, account, *req.Visible); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.Locked != nil {
		if err := h.engine.SetAccountLocked(ctx, account, *req.Locked); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.Placeholder != nil {
		if err := h.engine.SetAccountPlaceholder(ctx, account, *req.Placeholder); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.ExcludedFromBudget != nil {
		if err := h.engine.SetAccountExcludedFromBudget(ctx, account, *req.ExcludedFromBudget); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.Code != nil {
		if err := h.engine.SetAccountCode(ctx, account, *req.Code); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.AccountNumber != nil {
		if err := h.engine.SetAccountNumber(ctx, account, *req.AccountNumber); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	if req.Name != nil || req.Description != nil || req.Notes != nil {
		template := engine.NewAccount(account.AccountType(), account.CurrencyNode())
		template.SetName(account.Name())
		template.SetDescription(account.Description())
		template.SetNotes(account.Notes())
		template.SetCode(account.Code())
		template.SetAccountNumber(account.AccountNumber())
		template.SetBankID(account.BankID())
		if req.Name != nil {
			template.SetName(*req.Name)
		}
		if req.Description != nil {
			template.SetDescription(*req.Description)
		}
		if req.Notes != nil {
			template.SetNotes(*req.Notes)
		}
		if err := h.engine.ModifyAccount(ctx, template, account); err != nil {
			respondError(c, logger, err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account, h.engine.AccountPath(account)))
}

func (h *accountHandler) removeAccount(c *gin.Context) {
	account := h.resolve(c)
	if account == nil {
		return
	}
	if err := h.engine.RemoveAccount(c.Request.Context(), account); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandler) moveAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	account := h.resolve(c)
	if account == nil {
		return
	}
	var req dto.MoveAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	newParent, err := h.engine.AccountByUUID(c.Request.Context(), req.NewParentUUID)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	if err := h.engine.MoveAccount(c.Request.Context(), account, newParent); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account, h.engine.AccountPath(account)))
}

func (h *accountHandler) setAttribute(c *gin.Context) {
	account := h.resolve(c)
	if account == nil {
		return
	}
	var req dto.SetAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if err := h.engine.SetAccountAttribute(c.Request.Context(), account, req.Key, req.Value); err != nil {
		respondError(c, middleware.GetLoggerFromCtx(c.Request.Context()), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *accountHandler) listAccountTransactions(c *gin.Context) {
	account := h.resolve(c)
	if account == nil {
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionResponse(account.Transactions()))
}

// balance reports the account's own balance, historical when asOf is given.
func (h *accountHandler) balance(c *gin.Context) {
	account := h.resolve(c)
	if account == nil {
		return
	}

	resp := dto.AccountBalanceResponse{AccountUUID: account.UUID()}
	if cur := account.CurrencyNode(); cur != nil {
		resp.CurrencySymbol = cur.Symbol()
	}

	if raw := c.Query("asOf"); raw != "" {
		asOf, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asOf date, expected YYYY-MM-DD"})
			return
		}
		resp.AsOf = &asOf
		resp.Balance = account.BalanceAsOf(asOf)
	} else {
		resp.Balance = account.Balance()
	}

	c.JSON(http.StatusOK, resp)
}

func (h *accountHandler) treeBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	account := h.resolve(c)
	if account == nil {
		return
	}

	target := h.engine.DefaultCurrency()
	if symbol := c.Query("currency"); symbol != "" {
		var err error
		target, err = h.engine.CurrencyBySymbol(c.Request.Context(), symbol)
		if err != nil {
			respondError(c, logger, err)
			return
		}
	}

	balance := h.engine.TreeBalance(account, target)
	c.JSON(http.StatusOK, dto.TreeBalanceResponse{
		AccountUUID:    account.UUID(),
		CurrencySymbol: target.Symbol(),
		Balance:        balance,
	})
}
