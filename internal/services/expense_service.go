// Package services orchestrates domain operations over the store ports:
// validation before any write, identity stamping, and best-effort change
// notification.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/store"
)

// ErrConfirmationRequired gates expense deletion: the caller must confirm
// before the store is touched.
var ErrConfirmationRequired = errors.New("delete requires confirmation")

// ChangePublisher is the slice of the events client the services need.
// A nil publisher disables notification; writes still succeed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, event *events.ChangeEvent) error
}

// ExpenseInput is the raw user-submitted expense form.
type ExpenseInput struct {
	Amount      string
	Description string
	Category    string
	Date        string
}

// ExpenseService validates and persists expenses for the signed-in user.
type ExpenseService struct {
	expenses  store.ExpenseStore
	publisher ChangePublisher
}

func NewExpenseService(expenses store.ExpenseStore, publisher ChangePublisher) *ExpenseService {
	return &ExpenseService{expenses: expenses, publisher: publisher}
}

// Create validates the input fully before any write, stamps the owner, and
// persists. A failed change publish never fails the create.
func (s *ExpenseService) Create(ctx context.Context, userID string, in ExpenseInput) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", in.Amount, core.ErrInvalidAmount)
	}

	e := core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(in.Description),
		Category:    core.ParseCategory(in.Category),
		Date:        in.Date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.expenses.Add(ctx, userID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, events.NewChangeEvent("expenses", userID, events.OpCreate, saved.ID))
	return saved, nil
}

// Delete removes the expense once confirmed. Without confirmation it
// short-circuits before touching the store. Missing ids are swallowed so
// the operation is idempotent from the caller's view.
func (s *ExpenseService) Delete(ctx context.Context, userID, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := s.expenses.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, events.NewChangeEvent("expenses", userID, events.OpDelete, id))
	return nil
}

func (s *ExpenseService) List(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.expenses.ListByUser(ctx, userID)
}

func (s *ExpenseService) Subscribe(ctx context.Context, userID string) (*store.Subscription, error) {
	return s.expenses.Subscribe(ctx, userID)
}

func (s *ExpenseService) publish(ctx context.Context, event *events.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		slog.WarnContext(ctx, "Change event publish failed",
			"collection", event.Collection,
			"op", event.Op,
			"error", err)
	}
}
