package services

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestWeeklyChecker(t *testing.T) {
	c := WeeklyChecker{}
	now := day(2025, 6, 15)
	re := core.RecurringExpense{}

	if !c.IsDue(time.Time{}, now, re) {
		t.Fatalf("never applied should be due")
	}
	if c.IsDue(day(2025, 6, 10), now, re) {
		t.Fatalf("5 days since should not be due")
	}
	if !c.IsDue(day(2025, 6, 8), now, re) {
		t.Fatalf("7 days since should be due")
	}
}

func TestBiWeeklyChecker(t *testing.T) {
	c := BiWeeklyChecker{}
	now := day(2025, 6, 15)
	re := core.RecurringExpense{}

	if c.IsDue(day(2025, 6, 5), now, re) {
		t.Fatalf("10 days since should not be due")
	}
	if !c.IsDue(day(2025, 6, 1), now, re) {
		t.Fatalf("14 days since should be due")
	}
}

func TestMonthlyChecker(t *testing.T) {
	c := MonthlyChecker{}
	re := core.RecurringExpense{DueDay: 15}

	if c.IsDue(day(2025, 6, 15), day(2025, 6, 20), re) {
		t.Fatalf("already applied this month")
	}
	if c.IsDue(day(2025, 5, 15), day(2025, 6, 10), re) {
		t.Fatalf("due day not reached")
	}
	if !c.IsDue(day(2025, 5, 15), day(2025, 6, 15), re) {
		t.Fatalf("new month, due day reached")
	}

	// Never applied: still waits for the due day.
	if c.IsDue(time.Time{}, day(2025, 6, 10), re) {
		t.Fatalf("fresh template due before its day")
	}
	if !c.IsDue(time.Time{}, day(2025, 6, 16), re) {
		t.Fatalf("fresh template past its day should be due")
	}

	// Due day 31 clamps to February's last day.
	re31 := core.RecurringExpense{DueDay: 31}
	if !c.IsDue(day(2025, 1, 31), day(2025, 2, 28), re31) {
		t.Fatalf("clamped due day should fire on Feb 28")
	}
}

func TestYearlyChecker(t *testing.T) {
	c := YearlyChecker{}
	re := core.RecurringExpense{
		DueDay:    10,
		CreatedAt: day(2024, 3, 10),
	}

	if c.IsDue(day(2025, 3, 10), day(2025, 12, 1), re) {
		t.Fatalf("already applied this year")
	}
	if c.IsDue(day(2024, 3, 10), day(2025, 2, 1), re) {
		t.Fatalf("anchor month not reached")
	}
	if !c.IsDue(day(2024, 3, 10), day(2025, 3, 10), re) {
		t.Fatalf("anchor month, due day reached")
	}
	if !c.IsDue(day(2024, 3, 10), day(2025, 4, 1), re) {
		t.Fatalf("past anchor month should be due")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, f := range []core.Frequency{core.Weekly, core.BiWeekly, core.Monthly, core.Yearly} {
		if _, err := GetDuenessChecker(f); err != nil {
			t.Fatalf("no checker for %s: %v", f, err)
		}
	}
	if _, err := GetDuenessChecker("daily"); err == nil {
		t.Fatalf("expected error for unsupported frequency")
	}
}
