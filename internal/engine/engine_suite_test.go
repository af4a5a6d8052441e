package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ranlab/jgnash/internal/apperrors"
	"github.com/ranlab/jgnash/internal/engine"
	"github.com/ranlab/jgnash/internal/engine/message"
	"github.com/ranlab/jgnash/internal/storage/memory"
)

type EngineTestSuite struct {
	suite.Suite
	ctx    context.Context
	dao    *memory.DAO
	engine *engine.Engine
	usd    *engine.CurrencyNode
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dao = memory.New()

	e, err := engine.New(s.ctx, s.dao, engine.Config{
		Name:               uuid.NewString(),
		TrashRetention:     time.Hour,
		TrashSweepInterval: time.Hour,
	}, nil)
	s.Require().NoError(err)
	s.engine = e

	currency, err := e.CurrencyBySymbol(s.ctx, "USD")
	s.Require().NoError(err)
	s.usd = currency
}

func (s *EngineTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.engine.Shutdown(ctx))
}

func (s *EngineTestSuite) newAccount(name string, accountType engine.AccountType) *engine.Account {
	a := engine.NewAccount(accountType, s.usd)
	a.SetName(name)
	s.Require().NoError(s.engine.AddAccount(s.ctx, s.engine.RootAccount(), a))
	return a
}

func (s *EngineTestSuite) doubleEntry(credit, debit *engine.Account, amount string, date time.Time) *engine.Transaction {
	t := engine.NewTransaction(date)
	t.AddEntry(engine.NewTransactionEntry(credit, debit, decimal.RequireFromString(amount)))
	return t
}

// collector subscribes to bus channels and records events.
type collector struct {
	mu     sync.Mutex
	events []message.Event
}

func (c *collector) MessagePosted(m *message.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, m.Event)
}

func (c *collector) count(event message.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e == event {
			n++
		}
	}
	return n
}

func (s *EngineTestSuite) TestBootstrapCreatesRootAndDefaultCurrency() {
	root := s.engine.RootAccount()
	s.Require().NotNil(root)
	s.Equal(engine.AccountTypeRoot, root.AccountType())
	s.Equal("USD", s.engine.DefaultCurrency().Symbol())
}

func (s *EngineTestSuite) TestDoubleEntryTransactionBalances() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	tx := s.doubleEntry(groceries, checking, "42.50", time.Now())
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))

	s.True(checking.Balance().Equal(decimal.RequireFromString("-42.50")))
	s.True(groceries.Balance().Equal(decimal.RequireFromString("42.50")))
	s.Equal(1, checking.TransactionCount())
	s.Equal(1, groceries.TransactionCount())
}

func (s *EngineTestSuite) TestAddTransactionWithNilDebitAccountFails() {
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	c := &collector{}
	s.engine.Bus().Subscribe(c, message.ChannelTransaction)

	tx := engine.NewTransaction(time.Now())
	tx.AddEntry(engine.NewTransactionEntry(groceries, nil, decimal.RequireFromString("10")))

	err := s.engine.AddTransaction(s.ctx, tx)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	s.Equal(0, groceries.TransactionCount())
	// One failure message per account the transaction actually references.
	s.Equal(1, c.count(message.EventTransactionAddFailed))
}

func (s *EngineTestSuite) TestAddTransactionWithNoEntriesFails() {
	err := s.engine.AddTransaction(s.ctx, engine.NewTransaction(time.Now()))
	s.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestDuplicateTransactionRejected() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	tx := s.doubleEntry(groceries, checking, "10", time.Now())
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))

	err := s.engine.AddTransaction(s.ctx, tx)
	s.Require().ErrorIs(err, apperrors.ErrDuplicate)
	s.Equal(1, checking.TransactionCount())
}

func (s *EngineTestSuite) TestPlaceholderAccountRejectsTransaction() {
	old := s.newAccount("Old", engine.AccountTypeBank)
	other := s.newAccount("Other", engine.AccountTypeExpense)
	s.Require().NoError(s.engine.SetAccountPlaceholder(s.ctx, old, true))

	err := s.engine.AddTransaction(s.ctx, s.doubleEntry(other, old, "5", time.Now()))
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	s.Equal(0, old.TransactionCount())
	s.Equal(0, other.TransactionCount())
}

func (s *EngineTestSuite) TestLockedAccountRejectsTransactionWrites() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	first := s.doubleEntry(groceries, checking, "10", time.Now())
	s.Require().NoError(s.engine.AddTransaction(s.ctx, first))

	s.Require().NoError(s.engine.SetAccountLocked(s.ctx, checking, true))

	err := s.engine.AddTransaction(s.ctx, s.doubleEntry(groceries, checking, "5", time.Now()))
	s.Require().ErrorIs(err, apperrors.ErrLocked)

	err = s.engine.RemoveTransaction(s.ctx, first)
	s.Require().ErrorIs(err, apperrors.ErrLocked)
	s.Equal(1, checking.TransactionCount())
}

func (s *EngineTestSuite) TestRemoveAccountRequiresEmpty() {
	parent := s.newAccount("Parent", engine.AccountTypeAsset)
	child := engine.NewAccount(engine.AccountTypeBank, s.usd)
	child.SetName("Child")
	s.Require().NoError(s.engine.AddAccount(s.ctx, parent, child))

	err := s.engine.RemoveAccount(s.ctx, parent)
	s.Require().ErrorIs(err, apperrors.ErrConflict)

	s.Require().NoError(s.engine.RemoveAccount(s.ctx, child))
	s.Require().NoError(s.engine.RemoveAccount(s.ctx, parent))

	inTrash, err := s.engine.ObjectInTrash(s.ctx, parent.UUID())
	s.Require().NoError(err)
	s.True(inTrash)
}

func (s *EngineTestSuite) TestMoveAccountIntoOwnSubtreeRejected() {
	a := s.newAccount("A", engine.AccountTypeAsset)
	sub := engine.NewAccount(engine.AccountTypeAsset, s.usd)
	sub.SetName("Sub")
	s.Require().NoError(s.engine.AddAccount(s.ctx, a, sub))
	sub2 := engine.NewAccount(engine.AccountTypeAsset, s.usd)
	sub2.SetName("Sub2")
	s.Require().NoError(s.engine.AddAccount(s.ctx, sub, sub2))

	err := s.engine.MoveAccount(s.ctx, sub, sub2)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
	s.Same(a, sub.Parent())

	// A legal move still works.
	other := s.newAccount("Other", engine.AccountTypeAsset)
	s.Require().NoError(s.engine.MoveAccount(s.ctx, sub2, other))
	s.Same(other, sub2.Parent())
}

func (s *EngineTestSuite) TestAddRootAccountRejected() {
	root := engine.NewAccount(engine.AccountTypeRoot, s.usd)
	err := s.engine.AddAccount(s.ctx, s.engine.RootAccount(), root)
	s.Require().ErrorIs(err, apperrors.ErrValidation)
}

func (s *EngineTestSuite) TestExchangeRateRoundTrip() {
	eur := engine.NewCurrencyNode("EUR", 2)
	s.Require().NoError(s.engine.AddCurrency(s.ctx, eur))

	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.engine.SetExchangeRate(s.ctx, s.usd, eur, decimal.RequireFromString("0.90"), date))

	inverse, ok := s.engine.ExchangeRateAsOf(s.ctx, eur, s.usd, date)
	s.Require().True(ok)
	expected := decimal.NewFromInt(1).DivRound(decimal.RequireFromString("0.90"), 16)
	s.True(inverse.Equal(expected), "got %s want %s", inverse, expected)

	// Re-storing the reverse direction overwrites the same history point.
	s.Require().NoError(s.engine.SetExchangeRate(s.ctx, eur, s.usd, decimal.RequireFromString("1.25"), date))
	rates, err := s.engine.ExchangeRateList(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(rates, 1)
	s.Len(rates[0].History(), 1)

	forward, ok := s.engine.ExchangeRateAsOf(s.ctx, eur, s.usd, date)
	s.Require().True(ok)
	s.True(forward.Equal(decimal.RequireFromString("1.25")))
}

func (s *EngineTestSuite) TestExchangeRateContractViolations() {
	eur := engine.NewCurrencyNode("EUR", 2)
	s.Require().NoError(s.engine.AddCurrency(s.ctx, eur))

	err := s.engine.SetExchangeRate(s.ctx, s.usd, eur, decimal.Zero, time.Now())
	s.Require().ErrorIs(err, apperrors.ErrInvalidArgument)

	// Same currency on both sides is a silent no-op.
	s.Require().NoError(s.engine.SetExchangeRate(s.ctx, s.usd, s.usd, decimal.NewFromInt(2), time.Now()))
	rates, err := s.engine.ExchangeRateList(s.ctx)
	s.Require().NoError(err)
	s.Empty(rates)
}

func (s *EngineTestSuite) TestMultiCurrencyTransactionRecordsImpliedRate() {
	eur := engine.NewCurrencyNode("EUR", 2)
	s.Require().NoError(s.engine.AddCurrency(s.ctx, eur))

	usdChecking := s.newAccount("Checking", engine.AccountTypeBank)
	eurSavings := engine.NewAccount(engine.AccountTypeBank, eur)
	eurSavings.SetName("Euro Savings")
	s.Require().NoError(s.engine.AddAccount(s.ctx, s.engine.RootAccount(), eurSavings))

	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	tx := engine.NewTransaction(date)
	tx.AddEntry(engine.NewMultiCurrencyEntry(eurSavings, usdChecking,
		decimal.RequireFromString("90"), decimal.RequireFromString("100")))
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))

	// 100 USD bought 90 EUR, so the implied USD to EUR rate is 0.90.
	rate, ok := s.engine.ExchangeRateAsOf(s.ctx, s.usd, eur, date)
	s.Require().True(ok)
	s.True(rate.Equal(decimal.RequireFromString("0.9")), "got %s", rate)
}

func (s *EngineTestSuite) TestDuplicateCurrencyRejected() {
	dup := engine.NewCurrencyNode("usd", 2)
	err := s.engine.AddCurrency(s.ctx, dup)
	s.Require().ErrorIs(err, apperrors.ErrDuplicate)
}

func (s *EngineTestSuite) TestSecurityLifecycle() {
	security := engine.NewSecurityNode("ACME", 2, s.usd)
	s.Require().NoError(s.engine.AddSecurity(s.ctx, security))

	brokerage := s.newAccount("Brokerage", engine.AccountTypeInvest)
	s.Require().NoError(s.engine.UpdateAccountSecurities(s.ctx, brokerage, []*engine.SecurityNode{security}))
	s.True(brokerage.ContainsSecurity(security))

	// A held security cannot be removed.
	err := s.engine.RemoveSecurity(s.ctx, security)
	s.Require().ErrorIs(err, apperrors.ErrConflict)

	s.Require().NoError(s.engine.UpdateAccountSecurities(s.ctx, brokerage, nil))
	s.Require().NoError(s.engine.RemoveSecurity(s.ctx, security))
}

func (s *EngineTestSuite) TestInvestmentTransactionRequiresHeldSecurity() {
	security := engine.NewSecurityNode("ACME", 2, s.usd)
	s.Require().NoError(s.engine.AddSecurity(s.ctx, security))
	brokerage := s.newAccount("Brokerage", engine.AccountTypeInvest)
	cash := s.newAccount("Cash", engine.AccountTypeBank)

	tx := engine.NewInvestmentTransaction(time.Now(), &engine.InvestmentDetail{
		Action:   engine.ActionBuy,
		Security: security,
		Account:  brokerage,
		Price:    decimal.NewFromInt(10),
		Quantity: decimal.NewFromInt(5),
	})
	tx.AddEntry(engine.NewTransactionEntry(brokerage, cash, decimal.NewFromInt(50)))

	err := s.engine.AddTransaction(s.ctx, tx)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	s.Require().NoError(s.engine.UpdateAccountSecurities(s.ctx, brokerage, []*engine.SecurityNode{security}))
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))
}

func (s *EngineTestSuite) TestReconciliationInPlace() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	tx := s.doubleEntry(groceries, checking, "25", time.Now())
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))
	s.True(checking.ReconciledBalance().IsZero())

	s.Require().NoError(s.engine.SetTransactionReconciled(s.ctx, tx, checking, engine.Reconciled))

	s.True(checking.ReconciledBalance().Equal(decimal.RequireFromString("-25")))
	s.True(groceries.ReconciledBalance().IsZero(), "other side untouched")
	s.Equal(1, checking.TransactionCount(), "transaction never disappeared")
}

func (s *EngineTestSuite) TestRemovedTransactionStaysInTrash() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)

	tx := s.doubleEntry(groceries, checking, "10", time.Now())
	s.Require().NoError(s.engine.AddTransaction(s.ctx, tx))
	s.Require().NoError(s.engine.RemoveTransaction(s.ctx, tx))

	inTrash, err := s.engine.ObjectInTrash(s.ctx, tx.UUID())
	s.Require().NoError(err)
	s.True(inTrash)

	// Retention is an hour; the sweep must not evict yet.
	s.Require().NoError(s.engine.EmptyTrash(s.ctx))
	inTrash, err = s.engine.ObjectInTrash(s.ctx, tx.UUID())
	s.Require().NoError(err)
	s.True(inTrash)

	list, err := s.engine.TransactionList(s.ctx)
	s.Require().NoError(err)
	s.Empty(list, "trashed transactions leave the live list")
}

func (s *EngineTestSuite) TestBudgetGoalReplacementTrashesPredecessor() {
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)
	budget := engine.NewBudget("Household", engine.PeriodMonthly)
	s.Require().NoError(s.engine.AddBudget(s.ctx, budget))

	first := engine.NewBudgetGoal(engine.PeriodMonthly)
	first.SetAmount(0, decimal.RequireFromString("400"))
	s.Require().NoError(s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, first))

	second := engine.NewBudgetGoal(engine.PeriodMonthly)
	second.SetAmount(0, decimal.RequireFromString("450"))
	s.Require().NoError(s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, second))

	s.Same(second, budget.Goal(groceries))
	inTrash, err := s.engine.ObjectInTrash(s.ctx, first.UUID())
	s.Require().NoError(err)
	s.True(inTrash)
}

func (s *EngineTestSuite) TestRemoveAccountPurgesBudgetGoals() {
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)
	budget := engine.NewBudget("Household", engine.PeriodMonthly)
	s.Require().NoError(s.engine.AddBudget(s.ctx, budget))

	goal := engine.NewBudgetGoal(engine.PeriodMonthly)
	goal.SetAmount(2, decimal.RequireFromString("100"))
	s.Require().NoError(s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, goal))

	s.Require().NoError(s.engine.RemoveAccount(s.ctx, groceries))
	s.Nil(budget.Goal(groceries))
}

func (s *EngineTestSuite) TestExcludingAccountFromBudgetPurgesGoals() {
	groceries := s.newAccount("Groceries", engine.AccountTypeExpense)
	budget := engine.NewBudget("Household", engine.PeriodMonthly)
	s.Require().NoError(s.engine.AddBudget(s.ctx, budget))

	goal := engine.NewBudgetGoal(engine.PeriodMonthly)
	goal.SetAmount(0, decimal.RequireFromString("400"))
	s.Require().NoError(s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, goal))

	s.Require().NoError(s.engine.SetAccountExcludedFromBudget(s.ctx, groceries, true))
	s.True(groceries.ExcludedFromBudget())
	s.Nil(budget.Goal(groceries))
	inTrash, err := s.engine.ObjectInTrash(s.ctx, goal.UUID())
	s.Require().NoError(err)
	s.True(inTrash)

	replacement := engine.NewBudgetGoal(engine.PeriodMonthly)
	replacement.SetAmount(0, decimal.RequireFromString("450"))
	err = s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, replacement)
	s.Require().ErrorIs(err, apperrors.ErrValidation)

	// Re-including the account lifts the restriction.
	s.Require().NoError(s.engine.SetAccountExcludedFromBudget(s.ctx, groceries, false))
	s.Require().NoError(s.engine.UpdateBudgetGoals(s.ctx, budget, groceries, replacement))
	s.Same(replacement, budget.Goal(groceries))
}

func (s *EngineTestSuite) TestReminderApprovalMaterializesTransaction() {
	checking := s.newAccount("Checking", engine.AccountTypeBank)
	rent := s.newAccount("Rent", engine.AccountTypeExpense)

	template := s.doubleEntry(rent, checking, "1200", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reminder := engine.NewReminder(checking, engine.ReminderMonthly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	reminder.SetDescription("Rent")
	reminder.SetTemplate(template)
	s.Require().NoError(s.engine.AddReminder(s.ctx, reminder))

	pending, err := s.engine.PendingReminders(s.ctx, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	s.Require().NoError(s.engine.ApprovePendingReminder(s.ctx, pending[0]))
	s.Equal(1, checking.TransactionCount())
	s.True(checking.Balance().Equal(decimal.RequireFromString("-1200")))

	// The template itself is never attached.
	remaining, err := s.engine.PendingReminders(s.ctx, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), remaining[0].CommitDate())
}

func (s *EngineTestSuite) TestAccountAttributeLimit() {
	a := s.newAccount("Checking", engine.AccountTypeBank)

	s.Require().NoError(s.engine.SetAccountAttribute(s.ctx, a, "note", "hello"))
	s.Equal("hello", a.Attribute("note"))

	huge := make([]byte, engine.MaxAttributeLength+1)
	err := s.engine.SetAccountAttribute(s.ctx, a, "note", string(huge))
	s.Require().ErrorIs(err, apperrors.ErrInvalidArgument)
}

func (s *EngineTestSuite) TestAccountMessages() {
	c := &collector{}
	s.engine.Bus().Subscribe(c, message.ChannelAccount)

	a := s.newAccount("Checking", engine.AccountTypeBank)
	s.Equal(1, c.count(message.EventAccountAdd))

	s.Require().NoError(s.engine.RemoveAccount(s.ctx, a))
	s.Equal(1, c.count(message.EventAccountRemove))

	err := s.engine.AddAccount(s.ctx, s.engine.RootAccount(), engine.NewAccount(engine.AccountTypeRoot, s.usd))
	s.Require().Error(err)
	s.Equal(1, c.count(message.EventAccountAddFailed))
}

func (s *EngineTestSuite) TestConcurrentDisjointTransactionAdds() {
	const workers = 8
	const perWorker = 20

	type pair struct{ credit, debit *engine.Account }
	pairs := make([]pair, workers)
	for i := range pairs {
		credit := s.newAccount("Credit"+uuid.NewString(), engine.AccountTypeExpense)
		debit := s.newAccount("Debit"+uuid.NewString(), engine.AccountTypeBank)
		pairs[i] = pair{credit: credit, debit: debit}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tx := s.doubleEntry(p.credit, p.debit, "1", time.Now())
				assert.NoError(s.T(), s.engine.AddTransaction(s.ctx, tx))
			}
		}(pairs[i])
	}
	wg.Wait()

	for _, p := range pairs {
		s.Equal(perWorker, p.credit.TransactionCount())
		s.True(p.credit.Balance().Equal(decimal.NewFromInt(perWorker)))
		s.True(p.debit.Balance().Equal(decimal.NewFromInt(-perWorker)))
	}
}

func (s *EngineTestSuite) TestConcurrentSharedAccountAddsSerialize() {
	shared := s.newAccount("Shared", engine.AccountTypeBank)

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		credit := s.newAccount("Expense"+uuid.NewString(), engine.AccountTypeExpense)
		wg.Add(1)
		go func(credit *engine.Account) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				tx := s.doubleEntry(credit, shared, "1", time.Now())
				assert.NoError(s.T(), s.engine.AddTransaction(s.ctx, tx))
			}
		}(credit)
	}
	wg.Wait()

	s.Equal(workers*perWorker, shared.TransactionCount())
	s.True(shared.Balance().Equal(decimal.NewFromInt(-workers * perWorker)))
}

func TestTrashEvictionRespectsRetentionAndOrder(t *testing.T) {
	ctx := context.Background()
	dao := memory.New()
	e, err := engine.New(ctx, dao, engine.Config{
		Name:               uuid.NewString(),
		TrashRetention:     30 * time.Millisecond,
		TrashSweepInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, e.Shutdown(shutdownCtx))
	}()

	currency, err := e.CurrencyBySymbol(ctx, "USD")
	require.NoError(t, err)

	var removed []*engine.Account
	for _, name := range []string{"First", "Second", "Third"} {
		a := engine.NewAccount(engine.AccountTypeBank, currency)
		a.SetName(name)
		require.NoError(t, e.AddAccount(ctx, e.RootAccount(), a))
		require.NoError(t, e.RemoveAccount(ctx, a))
		removed = append(removed, a)
	}

	list, err := e.TrashObjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].Timestamp().Before(list[i-1].Timestamp()),
			"trash list must be ordered oldest first")
	}

	// Young trash survives a sweep.
	require.NoError(t, e.EmptyTrash(ctx))
	for _, a := range removed {
		inTrash, err := e.ObjectInTrash(ctx, a.UUID())
		require.NoError(t, err)
		assert.True(t, inTrash)
	}

	// Aged trash is evicted.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, e.EmptyTrash(ctx))
	for _, a := range removed {
		inTrash, err := e.ObjectInTrash(ctx, a.UUID())
		require.NoError(t, err)
		assert.False(t, inTrash)
	}
}

// flakyCallable fails a fixed number of times, then succeeds, and records
// cancellation.
type flakyCallable struct {
	mu        sync.Mutex
	fail      bool
	called    bool
	cancelled bool
}

func (f *flakyCallable) Call(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	if f.fail {
		return errors.New("quote source unavailable")
	}
	return nil
}

func (f *flakyCallable) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
}

func TestBackgroundBatchCancelsAfterRepeatedErrors(t *testing.T) {
	ctx := context.Background()
	dao := memory.New()
	e, err := engine.New(ctx, dao, engine.Config{
		Name:               uuid.NewString(),
		TrashSweepInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, e.Shutdown(shutdownCtx))
	}()

	c := &collector{}
	e.Bus().Subscribe(c, message.ChannelSystem)

	first := &flakyCallable{fail: true}
	second := &flakyCallable{fail: true}
	third := &flakyCallable{}
	e.RunBackgroundBatch(ctx, "test batch", []engine.BackgroundCallable{first, second, third})

	assert.True(t, first.called)
	assert.True(t, second.called)
	assert.False(t, third.called, "batch stops at the error threshold")
	assert.True(t, third.cancelled, "remaining work is cancelled")

	// The busy signal coalesces into one started/stopped pair.
	assert.Equal(t, 1, c.count(message.EventBackgroundProcessStarted))
	assert.Equal(t, 1, c.count(message.EventBackgroundProcessStopped))

	// A recovered batch runs to completion.
	recovered := &flakyCallable{}
	e.RunBackgroundBatch(ctx, "recovered", []engine.BackgroundCallable{&flakyCallable{fail: true}, recovered})
	assert.True(t, recovered.called)
}

// failingTrashDAO rejects new trash entries while fail is set.
type failingTrashDAO struct {
	engine.TrashDAO
	fail *bool
}

func (d failingTrashDAO) AddTrash(ctx context.Context, trash *engine.TrashObject) error {
	if *d.fail {
		return errors.New("trash store unavailable")
	}
	return d.TrashDAO.AddTrash(ctx, trash)
}

type failingTrashStore struct {
	engine.DAO
	fail bool
}

func (s *failingTrashStore) Trash() engine.TrashDAO {
	return failingTrashDAO{TrashDAO: s.DAO.Trash(), fail: &s.fail}
}

func TestRemoveAccountKeepsHierarchyWhenTrashStagingFails(t *testing.T) {
	ctx := context.Background()
	store := &failingTrashStore{DAO: memory.New()}
	e, err := engine.New(ctx, store, engine.Config{
		Name:               uuid.NewString(),
		TrashRetention:     time.Hour,
		TrashSweepInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, e.Shutdown(shutdownCtx))
	}()

	currency, err := e.CurrencyBySymbol(ctx, "USD")
	require.NoError(t, err)
	savings := engine.NewAccount(engine.AccountTypeBank, currency)
	savings.SetName("Savings")
	require.NoError(t, e.AddAccount(ctx, e.RootAccount(), savings))

	store.fail = true
	require.Error(t, e.RemoveAccount(ctx, savings))

	// The failed removal leaves the account attached and listable.
	assert.Same(t, e.RootAccount(), savings.Parent())
	resolved, err := e.AccountByUUID(ctx, savings.UUID())
	require.NoError(t, err)
	assert.Same(t, savings, resolved)
	list, err := e.AccountList(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, savings)
	inTrash, err := e.ObjectInTrash(ctx, savings.UUID())
	require.NoError(t, err)
	assert.False(t, inTrash)

	// Once the store recovers, removal completes normally.
	store.fail = false
	require.NoError(t, e.RemoveAccount(ctx, savings))
	inTrash, err = e.ObjectInTrash(ctx, savings.UUID())
	require.NoError(t, err)
	assert.True(t, inTrash)
}
