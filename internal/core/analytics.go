// Package core implements the analytics engine: pure functions that turn a
// materialized expense list and a budget/income pair into derived metrics.
// Nothing here performs I/O; callers pass the evaluation instant explicitly
// so identical inputs always produce identical outputs.
package core

import (
	"fmt"
	"sort"
	"time"
)

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
	RangeAll   Range = "all"
)

const (
	AlertGood     AlertLevel = "good"
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

const (
	TipInfo      TipTier = "info"
	TipWarning   TipTier = "warning"
	TipAlert     TipTier = "alert"
	TipModerate  TipTier = "moderate"
	TipGood      TipTier = "good"
	TipExcellent TipTier = "excellent"
)

type (
	// Range is a relative time window used to filter expenses before
	// aggregation.
	Range string

	// AlertLevel classifies budget utilization.
	AlertLevel string

	// TipTier classifies savings performance.
	TipTier string

	// CategoryAmount is an amount aggregated by category.
	CategoryAmount struct {
		Category Category
		Amount   Money
	}

	// DayTotal is an amount aggregated by calendar day.
	DayTotal struct {
		Day    string
		Amount Money
	}

	// BudgetMetrics are the derived budget-utilization figures.
	BudgetMetrics struct {
		Percent        float64
		Remaining      Money
		Savings        Money
		SavingsPercent float64
	}

	// Alert is a budget-utilization classification with its display message.
	Alert struct {
		Level   AlertLevel
		Message string
	}

	// Tip is a savings recommendation tier with its display copy.
	Tip struct {
		Tier    TipTier
		Title   string
		Message string
	}
)

// ParseRange normalizes free-form input to a known range, defaulting to all.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeWeek:
		return RangeWeek
	case RangeMonth:
		return RangeMonth
	case RangeYear:
		return RangeYear
	default:
		return RangeAll
	}
}

// FilterByRange keeps expenses whose effective timestamp falls within the
// window ending at now. Windows use calendar subtraction: week is seven days
// back, month is one calendar month back, year is one calendar year back.
// RangeAll keeps every record regardless of date.
func FilterByRange(expenses []Expense, r Range, now time.Time) []Expense {
	if r == RangeAll {
		return expenses
	}
	var cutoff time.Time
	switch r {
	case RangeWeek:
		cutoff = now.AddDate(0, 0, -7)
	case RangeMonth:
		cutoff = now.AddDate(0, -1, 0)
	case RangeYear:
		cutoff = now.AddDate(-1, 0, 0)
	default:
		return expenses
	}
	out := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.CreatedAt.Before(cutoff) && !e.CreatedAt.After(now) {
			out = append(out, e)
		}
	}
	return out
}

// TotalSpent sums amounts over the expense set.
func TotalSpent(expenses []Expense) Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return Money{Cents: cents}
}

// CategoryBreakdown groups expenses by category, summing per group, and
// returns entries sorted descending by amount. Ties keep first-encountered
// order; unknown categories bucket into CategoryOther. The group sums always
// add up to TotalSpent over the same set.
func CategoryBreakdown(expenses []Expense) []CategoryAmount {
	sums := make(map[Category]int64)
	var order []Category
	for _, e := range expenses {
		c := e.Category
		if !c.Valid() {
			c = CategoryOther
		}
		if _, seen := sums[c]; !seen {
			order = append(order, c)
		}
		sums[c] += e.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, c := range order {
		out = append(out, CategoryAmount{Category: c, Amount: Money{Cents: sums[c]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// ComputeBudgetMetrics derives utilization figures from the aggregate spend
// and the configured budget/income. A zero budget yields all-zero metrics
// regardless of the other inputs.
func ComputeBudgetMetrics(totalSpent, budget, income Money) BudgetMetrics {
	if budget.Cents == 0 {
		return BudgetMetrics{}
	}
	m := BudgetMetrics{
		Percent:   float64(totalSpent.Cents) / float64(budget.Cents) * 100,
		Remaining: Money{Cents: budget.Cents - totalSpent.Cents},
	}
	if income.Cents > 0 {
		m.Savings = Money{Cents: income.Cents - totalSpent.Cents}
		m.SavingsPercent = float64(m.Savings.Cents) / float64(income.Cents) * 100
	} else {
		m.Savings = m.Remaining
	}
	return m
}

// ClassifyAlert maps budget utilization to one of four mutually exclusive
// tiers. Boundaries are closed-open: exactly 80% is warning, exactly 100%
// is critical. Returns nil when no budget is configured.
func ClassifyAlert(m BudgetMetrics, budget Money) *Alert {
	if budget.Cents == 0 {
		return nil
	}
	switch {
	case m.Percent >= 100:
		over := m.Remaining.Cents
		if over < 0 {
			over = -over
		}
		return &Alert{
			Level:   AlertCritical,
			Message: fmt.Sprintf("Budget exceeded by %s!", FormatDollars(over)),
		}
	case m.Percent >= 80:
		return &Alert{
			Level:   AlertWarning,
			Message: fmt.Sprintf("Warning: %.1f%% of budget used (%s remaining)", m.Percent, FormatDollars(m.Remaining.Cents)),
		}
	case m.Percent >= 50:
		return &Alert{
			Level:   AlertInfo,
			Message: fmt.Sprintf("%.1f%% of budget used (%s remaining)", m.Percent, FormatDollars(m.Remaining.Cents)),
		}
	default:
		return &Alert{
			Level:   AlertGood,
			Message: fmt.Sprintf("On track: %.1f%% used, %s remaining", m.Percent, FormatDollars(m.Remaining.Cents)),
		}
	}
}

// ClassifyTip maps savings performance to a recommendation tier. The tier
// boundaries and their ordering are the contract; the copy is presentation.
func ClassifyTip(income Money, m BudgetMetrics) Tip {
	if income.Cents == 0 {
		return Tip{
			Tier:    TipInfo,
			Title:   "Set Your Income",
			Message: "Add your monthly income to get personalized investment tips.",
		}
	}
	if m.Savings.Cents <= 0 {
		return Tip{
			Tier:    TipWarning,
			Title:   "Focus on Reducing Expenses",
			Message: "Your expenses meet or exceed your income. Review your spending and identify areas to cut back.",
		}
	}
	saved := FormatDollars(m.Savings.Cents)
	switch {
	case m.SavingsPercent >= 30:
		return Tip{
			Tier:    TipExcellent,
			Title:   "Excellent Savings Rate!",
			Message: fmt.Sprintf("You're saving %.1f%% (%s). Consider diversifying into index funds, ETFs, or a retirement account for long-term growth.", m.SavingsPercent, saved),
		}
	case m.SavingsPercent >= 20:
		return Tip{
			Tier:    TipGood,
			Title:   "Great Savings Habit",
			Message: fmt.Sprintf("You're saving %.1f%% (%s). Consider opening a high-yield savings account or exploring low-risk mutual funds.", m.SavingsPercent, saved),
		}
	case m.SavingsPercent >= 10:
		return Tip{
			Tier:    TipModerate,
			Title:   "Building Your Savings",
			Message: fmt.Sprintf("You're saving %.1f%% (%s). Try to increase this to 20%% by reducing discretionary spending. Consider starting an emergency fund.", m.SavingsPercent, saved),
		}
	default:
		return Tip{
			Tier:    TipAlert,
			Title:   "Increase Your Savings",
			Message: fmt.Sprintf("You're saving only %.1f%% (%s). Aim for at least 20%% savings. Review your expenses and create a budget to save more.", m.SavingsPercent, saved),
		}
	}
}

// DailyTotals sums expenses per calendar day, sorted by day ascending.
// Used for the daily-spending report series.
func DailyTotals(expenses []Expense) []DayTotal {
	sums := make(map[string]int64)
	for _, e := range expenses {
		day := e.Date
		if day == "" {
			day = DayString(e.CreatedAt)
		}
		sums[day] += e.Amount.Cents
	}
	days := make([]string, 0, len(sums))
	for d := range sums {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]DayTotal, len(days))
	for i, d := range days {
		out[i] = DayTotal{Day: d, Amount: Money{Cents: sums[d]}}
	}
	return out
}

// AverageDailySpending divides the total by the nominal day count of the
// range: 7, 30 or 365. RangeAll has no nominal span and divides by 1.
func AverageDailySpending(total Money, r Range) Money {
	days := int64(1)
	switch r {
	case RangeWeek:
		days = 7
	case RangeMonth:
		days = 30
	case RangeYear:
		days = 365
	}
	return Money{Cents: total.Cents / days}
}

// MonthlyEquivalent normalizes a recurring amount to its monthly figure:
// weekly amounts count 4.33 times, bi-weekly 2.17, yearly one twelfth.
func MonthlyEquivalent(freq Frequency, amount Money) Money {
	switch freq {
	case Weekly:
		return Money{Cents: int64(float64(amount.Cents)*4.33 + 0.5)}
	case BiWeekly:
		return Money{Cents: int64(float64(amount.Cents)*2.17 + 0.5)}
	case Monthly:
		return amount
	case Yearly:
		return Money{Cents: amount.Cents / 12}
	default:
		return Money{}
	}
}

// DebtTotals sums remaining balances and monthly payments over a debt set.
func DebtTotals(debts []Debt) (remaining, monthly Money) {
	for _, d := range debts {
		remaining.Cents += d.RemainingAmount.Cents
		monthly.Cents += d.MonthlyPayment.Cents
	}
	return remaining, monthly
}
