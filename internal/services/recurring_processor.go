package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/store"
)

// RecurringProcessor materializes due recurring expense templates into real
// expenses. The worker binary runs it on a ticker; one pass handles every
// user's templates.
type RecurringProcessor struct {
	recurring store.RecurringStore
	expenses  store.ExpenseStore
	publisher ChangePublisher
}

func NewRecurringProcessor(recurring store.RecurringStore, expenses store.ExpenseStore, publisher ChangePublisher) *RecurringProcessor {
	return &RecurringProcessor{
		recurring: recurring,
		expenses:  expenses,
		publisher: publisher,
	}
}

// ProcessDue scans all templates, creates an expense for each one that is
// due at now, and marks it applied. Per-template failures are logged and
// skipped so one bad record cannot stall the rest of the pass.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	templates, err := p.recurring.ListAllRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, re := range templates {
		checker, err := GetDuenessChecker(re.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping template with unknown frequency",
				"id", re.ID, "frequency", re.Frequency)
			continue
		}
		if !checker.IsDue(re.LastApplied, now, re) {
			continue
		}

		expense := core.Expense{
			UserID:      re.UserID,
			Amount:      re.Amount,
			Description: re.Name,
			Category:    re.Category,
			CreatedAt:   now,
			Date:        core.DayString(now),
		}
		saved, err := p.expenses.Add(ctx, re.UserID, expense)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from template",
				"template_id", re.ID,
				"name", re.Name,
				"error", err)
			continue
		}

		if err := p.recurring.MarkApplied(ctx, re.UserID, re.ID, now); err != nil {
			// Expense exists; the template will look due again next pass.
			slog.ErrorContext(ctx, "Failed to mark template applied",
				"template_id", re.ID,
				"error", err)
		}

		if p.publisher != nil {
			event := events.NewChangeEvent("expenses", re.UserID, events.OpCreate, saved.ID)
			if err := p.publisher.PublishChange(ctx, event); err != nil {
				slog.WarnContext(ctx, "Change event publish failed",
					"doc_id", saved.ID, "error", err)
			}
		}

		processed++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"template_id", re.ID,
			"name", re.Name,
			"amount_cents", re.Amount.Cents,
			"frequency", re.Frequency)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", processed,
		"total_checked", len(templates))
	return processed, nil
}
