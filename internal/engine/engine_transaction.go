package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// AddTransaction validates and attaches the transaction to every account it
// references. Multi-currency entries with no exchange rate observation on
// the transaction date record the rate implied by their own credit/debit
// ratio, so the transaction's rate becomes the rate of record for that day.
// One TRANSACTION_ADD (or _FAILED) message is published per referenced
// account.
func (e *Engine) AddTransaction(ctx context.Context, t *Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: nil transaction", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateTransaction(ctx, t); err != nil {
		e.postTransaction(message.EventTransactionAddFailed, t)
		return err
	}

	attached := make([]*Account, 0, len(t.Accounts()))
	for _, a := range t.Accounts() {
		if a.addTransaction(t) {
			attached = append(attached, a)
		}
	}

	if err := e.dao.Transactions().AddTransaction(ctx, t); err != nil {
		for _, a := range attached {
			a.removeTransaction(t)
		}
		e.logger.Error("persisting transaction failed", slog.String("transaction", t.UUID()), slog.String("error", err.Error()))
		e.postTransaction(message.EventTransactionAddFailed, t)
		return fmt.Errorf("%w: persisting transaction: %v", apperrors.ErrValidation, err)
	}

	for _, entry := range t.Entries() {
		if entry.IsMultiCurrency() {
			e.recordImpliedRate(ctx, entry, t)
		}
	}

	e.postTransaction(message.EventTransactionAdd, t)
	return nil
}

// recordImpliedRate stores the exchange rate implied by a multi-currency
// entry when no observation exists for the transaction date yet.
func (e *Engine) recordImpliedRate(ctx context.Context, entry *TransactionEntry, t *Transaction) {
	debitCurrency := entry.DebitAccount().CurrencyNode()
	creditCurrency := entry.CreditAccount().CurrencyNode()
	if entry.DebitAmount().IsZero() || entry.CreditAmount().IsZero() {
		return
	}
	if rate := e.findExchangeRate(ctx, debitCurrency, creditCurrency); rate != nil {
		if rate.historyNode(t.Date()) != nil {
			return
		}
	}
	implied := divide(entry.CreditAmount(), entry.DebitAmount().Abs())
	if err := e.setExchangeRateLocked(ctx, debitCurrency, creditCurrency, implied, t.Date()); err != nil {
		e.logger.Warn("recording implied exchange rate failed",
			slog.String("transaction", t.UUID()), slog.String("error", err.Error()))
	}
}

// validateTransaction is the admission check for AddTransaction.
func (e *Engine) validateTransaction(ctx context.Context, t *Transaction) error {
	entries := t.Entries()
	if len(entries) == 0 {
		return fmt.Errorf("%w: transaction has no entries", apperrors.ErrValidation)
	}
	for _, entry := range entries {
		if !entry.valid() {
			return fmt.Errorf("%w: entry has a missing account, tag or mis-signed amount", apperrors.ErrValidation)
		}
	}
	for _, a := range t.Accounts() {
		if a.Locked() {
			return fmt.Errorf("%w: %s", apperrors.ErrLocked, a.Name())
		}
		if a.Placeholder() {
			return fmt.Errorf("%w: account %s is a placeholder", apperrors.ErrValidation, a.Name())
		}
	}
	if existing, err := e.dao.Transactions().TransactionByUUID(ctx, t.UUID()); err == nil && existing != nil {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, t.UUID())
	}
	if t.Type() == TypeSplitEntry && t.CommonAccount() == nil {
		return fmt.Errorf("%w: split transaction entries share no common account", apperrors.ErrValidation)
	}
	if detail := t.Investment(); detail != nil {
		if !validInvestmentDetail(detail, entries) {
			return fmt.Errorf("%w: investment detail does not match its action shape", apperrors.ErrValidation)
		}
		if !detail.Account.ContainsSecurity(detail.Security) {
			return fmt.Errorf("%w: account %s does not hold security %s",
				apperrors.ErrValidation, detail.Account.Name(), detail.Security.Symbol())
		}
	}
	return nil
}

// RemoveTransaction detaches the transaction from every account and moves
// it to trash. Fails outright when any referenced account is locked.
func (e *Engine) RemoveTransaction(ctx context.Context, t *Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: nil transaction", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range t.Accounts() {
		if a.Locked() {
			e.postTransaction(message.EventTransactionRemoveFailed, t)
			return fmt.Errorf("%w: %s", apperrors.ErrLocked, a.Name())
		}
	}

	for _, a := range t.Accounts() {
		a.removeTransaction(t)
	}

	if err := e.moveToTrash(ctx, t); err != nil {
		e.postTransaction(message.EventTransactionRemoveFailed, t)
		return fmt.Errorf("%w: trashing transaction: %v", apperrors.ErrValidation, err)
	}

	e.postTransaction(message.EventTransactionRemove, t)
	return nil
}

// SetTransactionReconciled updates the reconciled state of the
// transaction's entries for one account, in place under the write lock so
// no reader can observe the transaction missing.
func (e *Engine) SetTransactionReconciled(ctx context.Context, t *Transaction, account *Account, state ReconciledState) error {
	if t == nil || account == nil {
		return fmt.Errorf("%w: nil transaction or account", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !account.contains(t) {
		return fmt.Errorf("%w: transaction not attached to account %s", apperrors.ErrNotFound, account.Name())
	}

	for _, entry := range t.Entries() {
		entry.setReconciled(account, state)
	}
	account.invalidateCaches()

	if err := e.dao.Transactions().UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("%w: persisting transaction: %v", apperrors.ErrValidation, err)
	}

	e.bus.Publish(message.New(message.ChannelTransaction, message.EventTransactionAdd, e.id).
		With(message.PropertyTransaction, t).
		With(message.PropertyAccount, account))
	return nil
}

// postTransaction publishes one event per account the transaction actually
// references.
func (e *Engine) postTransaction(event message.Event, t *Transaction) {
	accounts := t.Accounts()
	if len(accounts) == 0 {
		e.bus.Publish(message.New(message.ChannelTransaction, event, e.id).With(message.PropertyTransaction, t))
		return
	}
	for _, a := range accounts {
		e.bus.Publish(message.New(message.ChannelTransaction, event, e.id).
			With(message.PropertyTransaction, t).
			With(message.PropertyAccount, a))
	}
}

// TransactionByUUID resolves a transaction, including trashed ones.
func (e *Engine) TransactionByUUID(ctx context.Context, id string) (*Transaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Transactions().TransactionByUUID(ctx, id)
}

// TransactionList returns every live transaction.
func (e *Engine) TransactionList(ctx context.Context) ([]*Transaction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Transactions().TransactionList(ctx)
}

// TreeBalance returns the account's recursive balance in the target
// currency, converting each descendant with the latest stored rates.
func (e *Engine) TreeBalance(account *Account, target *CurrencyNode) decimal.Decimal {
	if account == nil {
		return decimal.Decimal{}
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return account.TreeBalance(target, e)
}
