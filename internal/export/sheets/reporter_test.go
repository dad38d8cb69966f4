package sheets

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func expense(date string, cents int64, cat core.Category) core.Expense {
	return core.Expense{
		Amount:   core.Money{Cents: cents},
		Category: cat,
		Date:     date,
	}
}

func TestBuildReportRowFiltersByMonth(t *testing.T) {
	expenses := []core.Expense{
		expense("2025-06-01", 1000, core.CategoryFood),
		expense("2025-06-15", 3000, core.CategoryBills),
		expense("2025-05-31", 9999, core.CategoryShopping),
		expense("2025-07-01", 9999, core.CategoryShopping),
	}
	budget := core.Budget{Amount: core.Money{Cents: 10000}}

	row := BuildReportRow("u1", expenses, budget, 2025, time.June)
	if row.Month != "2025-06" {
		t.Fatalf("month = %s", row.Month)
	}
	if row.TotalCents != 4000 {
		t.Fatalf("total = %d, want 4000", row.TotalCents)
	}
	if row.PercentUsed != 40 {
		t.Fatalf("percent = %v, want 40", row.PercentUsed)
	}
	if row.TopCategory != "bills" {
		t.Fatalf("top category = %s, want bills", row.TopCategory)
	}
}

func TestBuildReportRowNoBudget(t *testing.T) {
	row := BuildReportRow("u1", []core.Expense{
		expense("2025-06-01", 500, core.CategoryFood),
	}, core.Budget{}, 2025, time.June)

	if row.PercentUsed != 0 {
		t.Fatalf("percent without budget = %v, want 0", row.PercentUsed)
	}
}

func TestBuildReportRowEmptyMonth(t *testing.T) {
	row := BuildReportRow("u1", nil, core.Budget{Amount: core.Money{Cents: 10000}}, 2025, time.June)
	if row.TotalCents != 0 || row.TopCategory != "" {
		t.Fatalf("empty month row = %+v", row)
	}
}
