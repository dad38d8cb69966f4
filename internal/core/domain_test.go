package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
	}{
		{"food", CategoryFood},
		{"FOOD", CategoryFood},
		{" transport ", CategoryTransport},
		{"", CategoryOther},
		{"crypto", CategoryOther},
	}
	for _, tc := range cases {
		if got := ParseCategory(tc.in); got != tc.want {
			t.Fatalf("ParseCategory(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		UserID:      "u1",
		Amount:      Money{Cents: 1000},
		Description: "groceries",
		Category:    CategoryFood,
		CreatedAt:   time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	zero := valid
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"missing user", func(e *Expense) { e.UserID = " " }, ErrEmptyUserID},
		{"negative amount", func(e *Expense) { e.Amount = Money{Cents: -1} }, ErrNegativeAmount},
		{"empty description", func(e *Expense) { e.Description = "  " }, ErrEmptyDescription},
		{"bad category", func(e *Expense) { e.Category = "crypto" }, ErrInvalidCategory},
	}
	for _, tc := range cases {
		e := valid
		tc.mutate(&e)
		if err := e.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	long := valid
	for len(long.Description) <= 200 {
		long.Description += "aaaaaaaaaa"
	}
	if err := long.Validate(); err == nil {
		t.Fatalf("over-long description accepted")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{Amount: Money{Cents: 50000}, Income: Money{Cents: 200000}}).Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	if err := (Budget{}).Validate(); err != nil {
		t.Fatalf("zero budget rejected: %v", err)
	}
	if err := (Budget{Amount: Money{Cents: -1}}).Validate(); err == nil {
		t.Fatalf("negative budget accepted")
	}
	if err := (Budget{Income: Money{Cents: -1}}).Validate(); err == nil {
		t.Fatalf("negative income accepted")
	}
}

func TestDebtValidate(t *testing.T) {
	valid := Debt{
		UserID:          "u1",
		Name:            "car loan",
		TotalAmount:     Money{Cents: 1000000},
		RemainingAmount: Money{Cents: 400000},
		MonthlyPayment:  Money{Cents: 25000},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid debt rejected: %v", err)
	}
	over := valid
	over.RemainingAmount = Money{Cents: 2000000}
	if err := over.Validate(); err == nil {
		t.Fatalf("remaining > total accepted")
	}
}

func TestRecurringExpenseValidate(t *testing.T) {
	valid := RecurringExpense{
		UserID:    "u1",
		Name:      "rent",
		Amount:    Money{Cents: 120000},
		Category:  CategoryBills,
		Frequency: Monthly,
		DueDay:    1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid recurring expense rejected: %v", err)
	}
	cases := []struct {
		name   string
		mutate func(*RecurringExpense)
		want   error
	}{
		{"bad frequency", func(r *RecurringExpense) { r.Frequency = "daily" }, ErrInvalidFrequency},
		{"due day zero", func(r *RecurringExpense) { r.DueDay = 0 }, ErrInvalidDueDay},
		{"due day 32", func(r *RecurringExpense) { r.DueDay = 32 }, ErrInvalidDueDay},
	}
	for _, tc := range cases {
		r := valid
		tc.mutate(&r)
		if err := r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestIncomeSourceValidate(t *testing.T) {
	oneOff := IncomeSource{UserID: "u1", Source: "bonus", Amount: Money{Cents: 50000}}
	if err := oneOff.Validate(); err != nil {
		t.Fatalf("one-off income rejected: %v", err)
	}
	recurring := oneOff
	recurring.Recurring = true
	if err := recurring.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("recurring income without frequency: got %v, want %v", recurring.Validate(), ErrInvalidFrequency)
	}
	recurring.Frequency = BiWeekly
	if err := recurring.Validate(); err != nil {
		t.Fatalf("recurring income rejected: %v", err)
	}
}
