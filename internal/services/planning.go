package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// DebtService is thin CRUD over the debt store plus the derived totals.
type DebtService struct {
	debts store.DebtStore
}

func NewDebtService(debts store.DebtStore) *DebtService {
	return &DebtService{debts: debts}
}

func (s *DebtService) Add(ctx context.Context, userID string, d core.Debt) (core.Debt, error) {
	d.UserID = userID
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	return s.debts.AddDebt(ctx, userID, d)
}

func (s *DebtService) Delete(ctx context.Context, userID, id string) error {
	return s.debts.DeleteDebt(ctx, userID, id)
}

func (s *DebtService) List(ctx context.Context, userID string) ([]core.Debt, error) {
	return s.debts.ListDebts(ctx, userID)
}

func (s *DebtService) RecordPayment(ctx context.Context, userID, id string, payment core.Money) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	return s.debts.RecordPayment(ctx, userID, id, payment)
}

// Totals returns the summed remaining balance and monthly payment load.
func (s *DebtService) Totals(ctx context.Context, userID string) (remaining, monthly core.Money, err error) {
	debts, err := s.debts.ListDebts(ctx, userID)
	if err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("list debts: %w", err)
	}
	remaining, monthly = core.DebtTotals(debts)
	return remaining, monthly, nil
}

// IncomeService is thin CRUD over income sources plus the monthly total.
type IncomeService struct {
	income store.IncomeStore
}

func NewIncomeService(income store.IncomeStore) *IncomeService {
	return &IncomeService{income: income}
}

func (s *IncomeService) Add(ctx context.Context, userID string, src core.IncomeSource) (core.IncomeSource, error) {
	src.UserID = userID
	if err := src.Validate(); err != nil {
		return core.IncomeSource{}, err
	}
	return s.income.AddIncome(ctx, userID, src)
}

func (s *IncomeService) Delete(ctx context.Context, userID, id string) error {
	return s.income.DeleteIncome(ctx, userID, id)
}

func (s *IncomeService) List(ctx context.Context, userID string) ([]core.IncomeSource, error) {
	return s.income.ListIncome(ctx, userID)
}

// MonthlyTotal sums the monthly equivalent of recurring sources; one-off
// sources don't contribute.
func (s *IncomeService) MonthlyTotal(ctx context.Context, userID string) (core.Money, error) {
	sources, err := s.income.ListIncome(ctx, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list income sources: %w", err)
	}
	var total core.Money
	for _, src := range sources {
		if !src.Recurring {
			continue
		}
		total.Cents += core.MonthlyEquivalent(src.Frequency, src.Amount).Cents
	}
	return total, nil
}

// RecurringService is thin CRUD over recurring expense templates.
type RecurringService struct {
	recurring store.RecurringStore
}

func NewRecurringService(recurring store.RecurringStore) *RecurringService {
	return &RecurringService{recurring: recurring}
}

func (s *RecurringService) Add(ctx context.Context, userID string, r core.RecurringExpense) (core.RecurringExpense, error) {
	r.UserID = userID
	if err := r.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	return s.recurring.AddRecurring(ctx, userID, r)
}

func (s *RecurringService) Delete(ctx context.Context, userID, id string) error {
	return s.recurring.DeleteRecurring(ctx, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	return s.recurring.ListRecurring(ctx, userID)
}

func (s *RecurringService) SetPaid(ctx context.Context, userID, id string, paid bool) error {
	return s.recurring.SetPaid(ctx, userID, id, paid)
}

// MonthlyTotal sums the monthly equivalent of every template.
func (s *RecurringService) MonthlyTotal(ctx context.Context, userID string) (core.Money, error) {
	templates, err := s.recurring.ListRecurring(ctx, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list recurring expenses: %w", err)
	}
	var total core.Money
	for _, r := range templates {
		total.Cents += core.MonthlyEquivalent(r.Frequency, r.Amount).Cents
	}
	return total, nil
}
