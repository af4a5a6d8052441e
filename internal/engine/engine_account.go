package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine/message"
)

// AddAccount attaches child under parent. The root type cannot be added,
// and the child must carry a valid type and a currency.
func (e *Engine) AddAccount(ctx context.Context, parent, child *Account) error {
	if parent == nil || child == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateNewAccount(ctx, child); err != nil {
		e.postWith(message.ChannelAccount, message.EventAccountAddFailed, message.PropertyAccount, child)
		return err
	}
	if !parent.addChild(child) {
		e.postWith(message.ChannelAccount, message.EventAccountAddFailed, message.PropertyAccount, child)
		return fmt.Errorf("%w: account cannot be its own parent", apperrors.ErrValidation)
	}

	child.setRates(e)
	if err := e.dao.Accounts().AddAccount(ctx, child); err != nil {
		parent.removeChild(child)
		e.logger.Error("persisting account failed", slog.String("account", child.UUID()), slog.String("error", err.Error()))
		e.postWith(message.ChannelAccount, message.EventAccountAddFailed, message.PropertyAccount, child)
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	if err := e.dao.Accounts().UpdateAccount(ctx, parent); err != nil {
		e.logger.Error("updating parent failed", slog.String("account", parent.UUID()), slog.String("error", err.Error()))
	}

	e.postWith(message.ChannelAccount, message.EventAccountAdd, message.PropertyAccount, child)
	return nil
}

func (e *Engine) validateNewAccount(ctx context.Context, child *Account) error {
	if child.AccountType() == AccountTypeRoot {
		return fmt.Errorf("%w: only one root account may exist", apperrors.ErrValidation)
	}
	if !child.AccountType().Valid() {
		return fmt.Errorf("%w: unknown account type %q", apperrors.ErrValidation, child.AccountType())
	}
	if child.CurrencyNode() == nil {
		return fmt.Errorf("%w: account has no currency", apperrors.ErrValidation)
	}
	if existing, err := e.dao.Accounts().AccountByUUID(ctx, child.UUID()); err == nil && existing != nil {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, child.UUID())
	}
	return nil
}

// RemoveAccount moves the account to trash. Removal requires zero
// transactions and zero children; budget goals referencing the account are
// purged first.
func (e *Engine) RemoveAccount(ctx context.Context, account *Account) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if account.TransactionCount() > 0 || account.ChildCount() > 0 {
		e.postWith(message.ChannelAccount, message.EventAccountRemoveFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: account still has transactions or children", apperrors.ErrConflict)
	}

	if err := e.purgeBudgetGoals(ctx, account); err != nil {
		e.postWith(message.ChannelAccount, message.EventAccountRemoveFailed, message.PropertyAccount, account)
		return err
	}

	// Stage the trash entry before touching the hierarchy so a failed
	// removal leaves the account attached to its parent.
	if err := e.moveToTrash(ctx, account); err != nil {
		e.postWith(message.ChannelAccount, message.EventAccountRemoveFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: trashing account: %v", apperrors.ErrValidation, err)
	}

	if parent := account.Parent(); parent != nil {
		parent.removeChild(account)
		if err := e.dao.Accounts().UpdateAccount(ctx, parent); err != nil {
			e.logger.Error("updating parent failed", slog.String("account", parent.UUID()), slog.String("error", err.Error()))
		}
	}

	e.postWith(message.ChannelAccount, message.EventAccountRemove, message.PropertyAccount, account)
	return nil
}

// MoveAccount reparents account under newParent. Moving an account into its
// own subtree is rejected with no mutation; that is the acyclicity guard.
func (e *Engine) MoveAccount(ctx context.Context, account, newParent *Account) error {
	if account == nil || newParent == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if account == newParent || account.IsAncestorOf(newParent) {
		e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: cannot move an account into its own subtree", apperrors.ErrValidation)
	}

	oldParent := account.Parent()
	if oldParent != nil {
		oldParent.removeChild(account)
	}
	newParent.addChild(account)

	for _, a := range []*Account{account, newParent, oldParent} {
		if a == nil {
			continue
		}
		if err := e.dao.Accounts().UpdateAccount(ctx, a); err != nil {
			e.logger.Error("persisting account move", slog.String("account", a.UUID()), slog.String("error", err.Error()))
		}
	}

	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// ModifyAccount copies the template's descriptive fields onto the account.
// Changing the type of an immutable-type account is a contract violation.
func (e *Engine) ModifyAccount(ctx context.Context, template, account *Account) error {
	if template == nil || account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	if template.AccountType() != account.AccountType() && !account.AccountType().Mutable() {
		return fmt.Errorf("%w: account type %q is immutable", apperrors.ErrInvalidArgument, account.AccountType())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if template.CurrencyNode() == nil || !template.AccountType().Valid() {
		e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: template is incomplete", apperrors.ErrValidation)
	}

	account.SetName(template.Name())
	account.SetDescription(template.Description())
	account.SetNotes(template.Notes())
	account.SetCode(template.Code())
	account.SetAccountNumber(template.AccountNumber())
	account.SetBankID(template.BankID())
	account.setVisible(template.Visible())
	if template.AccountType() != account.AccountType() {
		account.setAccountType(template.AccountType())
	}
	if template.CurrencyNode().UUID() != account.CurrencyNode().UUID() {
		account.setCurrencyNode(template.CurrencyNode())
	}

	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}

	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountVisibility toggles whether the account shows in views.
func (e *Engine) SetAccountVisibility(ctx context.Context, account *Account, visible bool) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	account.setVisible(visible)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountVisibilityChange, message.PropertyAccount, account)
	return nil
}

// SetAccountLocked locks or unlocks the account for transaction writes.
func (e *Engine) SetAccountLocked(ctx context.Context, account *Account, locked bool) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	account.setLocked(locked)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountPlaceholder marks the account structural. Only legal while the
// account holds no transactions; existing budget goals are purged because
// placeholders cannot be budgeted.
func (e *Engine) SetAccountPlaceholder(ctx context.Context, account *Account, placeholder bool) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if placeholder && account.TransactionCount() > 0 {
		e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
		return fmt.Errorf("%w: account with transactions cannot become a placeholder", apperrors.ErrConflict)
	}
	if placeholder {
		if err := e.purgeBudgetGoals(ctx, account); err != nil {
			e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
			return err
		}
	}

	account.setPlaceholder(placeholder)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountExcludedFromBudget toggles the budgeting opt-out. Excluding an
// account also purges its goals from every budget, mirroring the
// placeholder transition.
func (e *Engine) SetAccountExcludedFromBudget(ctx context.Context, account *Account, excluded bool) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if excluded {
		if err := e.purgeBudgetGoals(ctx, account); err != nil {
			e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
			return err
		}
	}

	account.setExcludedFromBudget(excluded)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountCode sets the sibling sort key.
func (e *Engine) SetAccountCode(ctx context.Context, account *Account, code int) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	account.SetCode(code)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountNumber sets the institution account number.
func (e *Engine) SetAccountNumber(ctx context.Context, account *Account, number string) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	account.SetAccountNumber(number)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// SetAccountAttribute stores a string attribute on the account. An empty
// value deletes the attribute. Values above MaxAttributeLength are a
// contract violation.
func (e *Engine) SetAccountAttribute(ctx context.Context, account *Account, key, value string) error {
	if account == nil || key == "" {
		return fmt.Errorf("%w: nil account or empty key", apperrors.ErrInvalidArgument)
	}
	if len(value) > MaxAttributeLength {
		return fmt.Errorf("%w: attribute value exceeds %d bytes", apperrors.ErrInvalidArgument, MaxAttributeLength)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	account.setAttribute(key, value)
	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	e.postWith(message.ChannelAccount, message.EventAccountModify, message.PropertyAccount, account)
	return nil
}

// UpdateAccountSecurities replaces the security set of an investment
// account. Securities in use by the account's transactions cannot be
// dropped.
func (e *Engine) UpdateAccountSecurities(ctx context.Context, account *Account, nodes []*SecurityNode) error {
	if account == nil {
		return fmt.Errorf("%w: nil account", apperrors.ErrInvalidArgument)
	}
	if account.AccountType().Group() != GroupInvest {
		return fmt.Errorf("%w: account is not an investment account", apperrors.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	keep := make(map[string]*SecurityNode, len(nodes))
	for _, n := range nodes {
		if n != nil {
			keep[n.UUID()] = n
		}
	}

	for _, held := range account.Securities() {
		if _, ok := keep[held.UUID()]; ok {
			delete(keep, held.UUID())
			continue
		}
		if securityInUse(account, held) {
			e.postWith(message.ChannelAccount, message.EventAccountModifyFailed, message.PropertyAccount, account)
			return fmt.Errorf("%w: security %s has transactions", apperrors.ErrConflict, held.Symbol())
		}
		account.removeSecurity(held)
		e.postWith(message.ChannelAccount, message.EventAccountSecurityRemove, message.PropertyCommodity, held)
	}
	for _, n := range keep {
		account.addSecurity(n)
		e.postWith(message.ChannelAccount, message.EventAccountSecurityAdd, message.PropertyCommodity, n)
	}

	if err := e.dao.Accounts().UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("%w: persisting account: %v", apperrors.ErrValidation, err)
	}
	return nil
}

func securityInUse(account *Account, node *SecurityNode) bool {
	for _, t := range account.Transactions() {
		if d := t.Investment(); d != nil && d.Security == node {
			return true
		}
	}
	return false
}

// RootAccount returns the synthetic root of the account hierarchy.
func (e *Engine) RootAccount() *Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.root
}

// AccountByUUID resolves an account, including trashed ones.
func (e *Engine) AccountByUUID(ctx context.Context, id string) (*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Accounts().AccountByUUID(ctx, id)
}

// AccountList returns every live account.
func (e *Engine) AccountList(ctx context.Context) ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dao.Accounts().AccountList(ctx)
}

// AccountPath returns the account's display path using the configured
// separator.
func (e *Engine) AccountPath(account *Account) string {
	if account == nil {
		return ""
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return account.PathName(e.separator)
}

// NextTransactionNumber guesses the next check number for the account from
// the highest numeric transaction number seen.
func (e *Engine) NextTransactionNumber(account *Account) string {
	if account == nil {
		return ""
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	max := 0
	for _, t := range account.Transactions() {
		if n, err := strconv.Atoi(t.Number()); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
