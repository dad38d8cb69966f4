package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ErrBudgetExceedsIncome warns that the budget ceiling is above the stated
// income. It is confirmable: resubmitting with the acknowledgement flag
// saves anyway.
var ErrBudgetExceedsIncome = errors.New("budget exceeds income")

// BudgetService validates and persists the per-user budget singleton.
// Writes are last-write-wins; two concurrent savers race and the later
// one sticks.
type BudgetService struct {
	budgets store.BudgetStore
}

func NewBudgetService(budgets store.BudgetStore) *BudgetService {
	return &BudgetService{budgets: budgets}
}

// Save parses and validates both figures before writing. A budget above a
// positive income needs ackOverBudget, otherwise the save is refused with
// ErrBudgetExceedsIncome.
func (s *BudgetService) Save(ctx context.Context, userID, amount, income string, ackOverBudget bool) (core.Budget, error) {
	amountCents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget %q: %w", amount, core.ErrInvalidAmount)
	}
	incomeCents := int64(0)
	if income != "" {
		incomeCents, err = core.ParseDecimalToCents(income)
		if err != nil {
			return core.Budget{}, fmt.Errorf("income %q: %w", income, core.ErrInvalidAmount)
		}
	}

	b := core.Budget{
		Amount: core.Money{Cents: amountCents},
		Income: core.Money{Cents: incomeCents},
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if incomeCents > 0 && amountCents > incomeCents && !ackOverBudget {
		return core.Budget{}, ErrBudgetExceedsIncome
	}

	if err := s.budgets.Put(ctx, userID, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return b, nil
}

// Get returns the saved budget, or the zero budget when none was ever
// saved. Absence reads as zero everywhere downstream.
func (s *BudgetService) Get(ctx context.Context, userID string) (core.Budget, error) {
	b, ok, err := s.budgets.Get(ctx, userID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load budget: %w", err)
	}
	if !ok {
		return core.Budget{}, nil
	}
	return b, nil
}
