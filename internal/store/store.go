// Package store defines the persistence ports for user-owned finance
// documents. Backends (memory, sqlite) implement these interfaces; every
// operation is scoped to the owning user and cross-owner access surfaces
// as an error rather than another user's data.
package store

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when a document does not exist for the owner.
	ErrNotFound = errors.New("document not found")

	// ErrWrongOwner is returned when a write names a different owner than
	// the one the operation is scoped to.
	ErrWrongOwner = errors.New("document owned by another user")
)

// ExpenseStore persists expense records and feeds live snapshots to
// subscribers of the owning user.
type ExpenseStore interface {
	// Add stores a new expense for ownerID, assigning ID and, when zero,
	// CreatedAt and Date. An expense carrying a different UserID is
	// rejected with ErrWrongOwner.
	Add(ctx context.Context, ownerID string, e core.Expense) (core.Expense, error)

	// Delete removes the owner's expense. A missing id is not an error.
	Delete(ctx context.Context, ownerID, id string) error

	// ListByUser returns the owner's expenses, newest first.
	ListByUser(ctx context.Context, ownerID string) ([]core.Expense, error)

	// ListOwners returns every user id with at least one expense; the
	// report exporter iterates them.
	ListOwners(ctx context.Context) ([]string, error)

	// Subscribe opens a live snapshot feed for the owner. The current
	// snapshot is delivered immediately, then again after every change.
	// The feed ends on Cancel or when ctx is done.
	Subscribe(ctx context.Context, ownerID string) (*Subscription, error)
}

// BudgetStore persists the per-user budget singleton. Writes are
// last-write-wins; concurrent writers race and the later Put sticks.
type BudgetStore interface {
	// Get returns the owner's budget and whether one was ever saved.
	Get(ctx context.Context, ownerID string) (core.Budget, bool, error)
	Put(ctx context.Context, ownerID string, b core.Budget) error
}

// DebtStore persists debt records. Method names are distinct from the
// other ports so one backend can satisfy all of them.
type DebtStore interface {
	AddDebt(ctx context.Context, ownerID string, d core.Debt) (core.Debt, error)
	DeleteDebt(ctx context.Context, ownerID, id string) error
	ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error)

	// RecordPayment reduces the remaining balance by the payment amount,
	// clamping at zero.
	RecordPayment(ctx context.Context, ownerID, id string, payment core.Money) error
}

// RecurringStore persists recurring expense templates.
type RecurringStore interface {
	AddRecurring(ctx context.Context, ownerID string, r core.RecurringExpense) (core.RecurringExpense, error)
	DeleteRecurring(ctx context.Context, ownerID, id string) error
	ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringExpense, error)

	// ListAllRecurring returns every user's templates; the worker scans
	// them for dueness.
	ListAllRecurring(ctx context.Context) ([]core.RecurringExpense, error)
	SetPaid(ctx context.Context, ownerID, id string, paid bool) error

	// MarkApplied records that the template materialized an expense at the
	// given instant, so the worker does not apply it twice in one cycle.
	MarkApplied(ctx context.Context, ownerID, id string, at time.Time) error
}

// IncomeStore persists income source records.
type IncomeStore interface {
	AddIncome(ctx context.Context, ownerID string, s core.IncomeSource) (core.IncomeSource, error)
	DeleteIncome(ctx context.Context, ownerID, id string) error
	ListIncome(ctx context.Context, ownerID string) ([]core.IncomeSource, error)
}

// Backend bundles every port for binary wiring; both the memory and the
// sqlite backend satisfy it.
type Backend interface {
	ExpenseStore
	BudgetStore
	DebtStore
	RecurringStore
	IncomeStore
}
