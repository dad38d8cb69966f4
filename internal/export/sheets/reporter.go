// Package sheets appends monthly spending reports to a Google Sheet. Each
// export pass writes one row per user: total spent, budget utilization and
// the heaviest category for the requested month.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// Config carries the spreadsheet target and service account credentials.
// Exactly one of CredentialsFile and CredentialsJSON must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// Source is the slice of the store the exporter reads from.
type Source interface {
	store.ExpenseStore
	store.BudgetStore
}

type Reporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

func NewReporter(ctx context.Context, cfg Config, logger *log.Logger) (*Reporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	var credentials []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentials = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentials = raw
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Reports"
	}

	return &Reporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// ReportRow is one user's aggregated month.
type ReportRow struct {
	UserID      string
	Month       string
	TotalCents  int64
	BudgetCents int64
	PercentUsed float64
	TopCategory string
}

// BuildReportRow aggregates one user's expenses for the given month.
// Expenses are matched on their calendar-day string, so records backdated
// by the client land in the month they claim.
func BuildReportRow(userID string, expenses []core.Expense, budget core.Budget, year int, month time.Month) ReportRow {
	prefix := fmt.Sprintf("%04d-%02d", year, month)

	var inMonth []core.Expense
	for _, e := range expenses {
		if strings.HasPrefix(e.Date, prefix) {
			inMonth = append(inMonth, e)
		}
	}

	total := core.TotalSpent(inMonth)
	row := ReportRow{
		UserID:      userID,
		Month:       prefix,
		TotalCents:  total.Cents,
		BudgetCents: budget.Amount.Cents,
	}
	if budget.Amount.Cents > 0 {
		row.PercentUsed = float64(total.Cents) / float64(budget.Amount.Cents) * 100
	}
	if breakdown := core.CategoryBreakdown(inMonth); len(breakdown) > 0 {
		row.TopCategory = string(breakdown[0].Category)
	}
	return row
}

// Append writes the rows to the report sheet.
func (r *Reporter) Append(ctx context.Context, rows []ReportRow) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = []any{
			row.Month,
			row.UserID,
			core.FormatDollars(row.TotalCents),
			core.FormatDollars(row.BudgetCents),
			fmt.Sprintf("%.1f%%", row.PercentUsed),
			row.TopCategory,
		}
	}

	vr := &gsheet.ValueRange{Values: values}
	_, err := r.svc.Spreadsheets.Values.Append(r.spreadsheetID, r.sheetName+"!A:F", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", r.sheetName, err)
	}

	r.logger.InfoContext(ctx, "Report rows appended",
		log.FieldCount, len(rows))
	return nil
}

// Export builds and appends one row per user for the given month, returning
// how many rows were written.
func (r *Reporter) Export(ctx context.Context, src Source, year int, month time.Month) (int, error) {
	owners, err := src.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}

	rows := make([]ReportRow, 0, len(owners))
	for _, owner := range owners {
		expenses, err := src.ListByUser(ctx, owner)
		if err != nil {
			return 0, fmt.Errorf("list expenses for %s: %w", owner, err)
		}
		budget, _, err := src.Get(ctx, owner)
		if err != nil {
			return 0, fmt.Errorf("load budget for %s: %w", owner, err)
		}
		rows = append(rows, BuildReportRow(owner, expenses, budget, year, month))
	}

	if err := r.Append(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
