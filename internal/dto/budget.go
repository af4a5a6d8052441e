package dto

import (
	"github.com/shopspring/decimal"

	"github.com/ranlab/jgnash/internal/engine"
)

// CreateBudgetRequest defines the data needed to create a budget.
type CreateBudgetRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Period      string `json:"period" binding:"required,oneof=DAILY WEEKLY BI_WEEKLY MONTHLY QUARTERLY YEARLY"`
}

// UpdateBudgetRequest changes a budget's descriptive fields.
type UpdateBudgetRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateBudgetGoalsRequest replaces the goal for one account in a budget.
type UpdateBudgetGoalsRequest struct {
	AccountUUID string            `json:"accountUUID" binding:"required"`
	Period      string            `json:"period" binding:"required,oneof=DAILY WEEKLY BI_WEEKLY MONTHLY QUARTERLY YEARLY"`
	Amounts     []decimal.Decimal `json:"amounts" binding:"required,min=1"`
}

// BudgetGoalResponse defines the returned goal for one account.
type BudgetGoalResponse struct {
	AccountUUID string            `json:"accountUUID"`
	Period      string            `json:"period"`
	Amounts     []decimal.Decimal `json:"amounts"`
	Total       decimal.Decimal   `json:"total"`
}

// BudgetResponse defines the data returned for a budget.
type BudgetResponse struct {
	UUID        string               `json:"uuid"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Period      string               `json:"period"`
	Goals       []BudgetGoalResponse `json:"goals"`
}

// ToBudgetResponse converts an engine budget to its response DTO.
func ToBudgetResponse(b *engine.Budget) BudgetResponse {
	resp := BudgetResponse{
		UUID:        b.UUID(),
		Name:        b.Name(),
		Description: b.Description(),
		Period:      string(b.Period()),
		Goals:       []BudgetGoalResponse{},
	}
	snapshot := b.Snapshot()
	for accountUUID, goal := range snapshot.Goals {
		total := decimal.Zero
		for _, a := range goal.Amounts {
			total = total.Add(a)
		}
		resp.Goals = append(resp.Goals, BudgetGoalResponse{
			AccountUUID: accountUUID,
			Period:      goal.Period,
			Amounts:     goal.Amounts,
			Total:       total,
		})
	}
	return resp
}

// ToListBudgetResponse converts a slice of budgets.
func ToListBudgetResponse(budgets []*engine.Budget) []BudgetResponse {
	res := make([]BudgetResponse, len(budgets))
	for i, b := range budgets {
		res[i] = ToBudgetResponse(b)
	}
	return res
}
