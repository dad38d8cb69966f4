package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryBills         Category = "bills"
	CategoryHealth        Category = "health"
	CategoryOther         Category = "other"
)

const (
	Weekly   Frequency = "weekly"
	BiWeekly Frequency = "bi-weekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
)

type (
	// Category is the fixed enumeration tagging an expense's purpose.
	Category string

	// Frequency describes how often a recurring amount repeats.
	Frequency string

	Money struct {
		Cents int64
	}

	// Expense is a single user-entered spending transaction.
	Expense struct {
		ID          string
		UserID      string
		Amount      Money
		Description string
		Category    Category
		CreatedAt   time.Time
		// Date is the client-derived calendar day (YYYY-MM-DD), redundant
		// with CreatedAt but kept on the record for reporting.
		Date string
	}

	// Budget is the per-user monthly ceiling and income figure.
	// The zero value stands in for a budget that was never saved.
	Budget struct {
		Amount    Money
		Income    Money
		UpdatedAt time.Time
	}

	// Debt tracks an outstanding balance and its monthly payment.
	Debt struct {
		ID              string
		UserID          string
		Name            string
		Type            string
		TotalAmount     Money
		RemainingAmount Money
		InterestRate    float64
		MonthlyPayment  Money
		DueDate         string
		CreatedAt       time.Time
	}

	// RecurringExpense is a template that materializes into real expenses
	// on its due day each cycle.
	RecurringExpense struct {
		ID          string
		UserID      string
		Name        string
		Amount      Money
		Category    Category
		Frequency   Frequency
		DueDay      int
		Paid        bool
		CreatedAt   time.Time
		LastApplied time.Time
	}

	// IncomeSource is a single income stream, recurring or one-off.
	IncomeSource struct {
		ID        string
		UserID    string
		Source    string
		Amount    Money
		Category  string
		Frequency Frequency
		Recurring bool
		Date      string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyUserID      = errors.New("missing user id")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDueDay    = errors.New("invalid due day")
)

// Categories lists the fixed enumeration in display order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryShopping,
		CategoryEntertainment,
		CategoryBills,
		CategoryHealth,
		CategoryOther,
	}
}

// ParseCategory normalizes free-form input to a known category.
// Missing or unrecognized values fall back to CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryShopping,
		CategoryEntertainment, CategoryBills, CategoryHealth, CategoryOther:
		return true
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, BiWeekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Validate enforces the non-negative invariant. Zero is a legal amount
// for budgets, incomes and expenses alike.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.Cents < 0 {
		return errors.New("budget cannot be negative")
	}
	if b.Income.Cents < 0 {
		return errors.New("income cannot be negative")
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if err := d.TotalAmount.Validate(); err != nil {
		return err
	}
	if err := d.RemainingAmount.Validate(); err != nil {
		return err
	}
	if d.RemainingAmount.Cents > d.TotalAmount.Cents {
		return errors.New("remaining amount exceeds total")
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(re.Name) == "" {
		return ErrEmptyName
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Category.Valid() {
		return ErrInvalidCategory
	}
	if !re.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if re.DueDay < 1 || re.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func (is IncomeSource) Validate() error {
	if strings.TrimSpace(is.UserID) == "" {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(is.Source) == "" {
		return ErrEmptyName
	}
	if err := is.Amount.Validate(); err != nil {
		return err
	}
	if is.Recurring && !is.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

// DayString formats t as the calendar-day string stored on expense records.
func DayString(t time.Time) string {
	return t.Format("2006-01-02")
}
