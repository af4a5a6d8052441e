package engine

import (
	"sync"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the granularity budget goals are tracked at within a year.
type BudgetPeriod string

const (
	PeriodDaily     BudgetPeriod = "DAILY"
	PeriodWeekly    BudgetPeriod = "WEEKLY"
	PeriodBiWeekly  BudgetPeriod = "BIWEEKLY"
	PeriodMonthly   BudgetPeriod = "MONTHLY"
	PeriodQuarterly BudgetPeriod = "QUARTERLY"
	PeriodYearly    BudgetPeriod = "YEARLY"
)

// periodsPerYear maps a budget period to the number of goal slots per year.
var periodsPerYear = map[BudgetPeriod]int{
	PeriodDaily:     366,
	PeriodWeekly:    53,
	PeriodBiWeekly:  27,
	PeriodMonthly:   12,
	PeriodQuarterly: 4,
	PeriodYearly:    1,
}

// BudgetGoal holds one account's target amounts for a budget, one slot per
// period of the year.
type BudgetGoal struct {
	storedObject
	period  BudgetPeriod
	amounts []decimal.Decimal
}

// NewBudgetGoal builds an all-zero goal at the given period granularity.
func NewBudgetGoal(period BudgetPeriod) *BudgetGoal {
	n, ok := periodsPerYear[period]
	if !ok {
		period = PeriodMonthly
		n = periodsPerYear[PeriodMonthly]
	}
	return &BudgetGoal{
		storedObject: newStoredObject(),
		period:       period,
		amounts:      make([]decimal.Decimal, n),
	}
}

func (g *BudgetGoal) Period() BudgetPeriod { return g.period }

// PeriodCount returns the number of goal slots in a year.
func (g *BudgetGoal) PeriodCount() int { return len(g.amounts) }

// Amount returns the target for the period index, zero when out of range.
func (g *BudgetGoal) Amount(index int) decimal.Decimal {
	if index < 0 || index >= len(g.amounts) {
		return decimal.Decimal{}
	}
	return g.amounts[index]
}

// SetAmount sets the target for the period index; out of range is ignored.
func (g *BudgetGoal) SetAmount(index int, amount decimal.Decimal) {
	if index < 0 || index >= len(g.amounts) {
		return
	}
	g.amounts[index] = amount
}

// TotalAmount sums the year's targets.
func (g *BudgetGoal) TotalAmount() decimal.Decimal {
	sum := decimal.Decimal{}
	for _, a := range g.amounts {
		sum = sum.Add(a)
	}
	return sum
}

func (g *BudgetGoal) clone() *BudgetGoal {
	dup := NewBudgetGoal(g.period)
	copy(dup.amounts, g.amounts)
	return dup
}

// Budget groups per-account goals. Goals are keyed by account uuid; the map
// has its own lock because budget views read it while the engine mutates.
type Budget struct {
	storedObject
	name        string
	description string
	period      BudgetPeriod

	mu    sync.RWMutex
	goals map[string]*BudgetGoal
}

// NewBudget builds an empty budget at the given period granularity.
func NewBudget(name string, period BudgetPeriod) *Budget {
	if _, ok := periodsPerYear[period]; !ok {
		period = PeriodMonthly
	}
	return &Budget{
		storedObject: newStoredObject(),
		name:         name,
		period:       period,
		goals:        make(map[string]*BudgetGoal),
	}
}

func (b *Budget) Name() string         { return b.name }
func (b *Budget) Description() string  { return b.description }
func (b *Budget) Period() BudgetPeriod { return b.period }

func (b *Budget) SetName(name string)               { b.name = name }
func (b *Budget) SetDescription(description string) { b.description = description }

// Goal returns the goal for an account, or nil when none is set.
func (b *Budget) Goal(account *Account) *BudgetGoal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.goals[account.UUID()]
}

// setGoal installs a goal for the account and returns the displaced goal so
// the engine can trash it.
func (b *Budget) setGoal(account *Account, goal *BudgetGoal) *BudgetGoal {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.goals[account.UUID()]
	b.goals[account.UUID()] = goal
	return old
}

// removeGoal drops the goal for the account and returns it, or nil.
func (b *Budget) removeGoal(account *Account) *BudgetGoal {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.goals[account.UUID()]
	delete(b.goals, account.UUID())
	return old
}

// GoalAccountUUIDs lists the accounts with goals set.
func (b *Budget) GoalAccountUUIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.goals))
	for id := range b.goals {
		out = append(out, id)
	}
	return out
}
