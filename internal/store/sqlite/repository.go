// Package sqlite is the durable store backend: modernc.org/sqlite with
// embedded golang-migrate migrations. Live snapshots go through the shared
// hub, so subscribers on this instance see writes immediately; writes from
// other instances arrive via the change-event consumer poking the hub.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db  *sql.DB
	hub *store.Hub
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:  db,
		hub: store.NewHub(),
		now: time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports backend health for the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Hub exposes the snapshot fan-out so the change-event consumer can force
// a re-delivery when another instance writes.
func (r *Repository) Hub() *store.Hub { return r.hub }

func (r *Repository) Add(ctx context.Context, ownerID string, e core.Expense) (core.Expense, error) {
	if e.UserID != "" && e.UserID != ownerID {
		return core.Expense{}, store.ErrWrongOwner
	}
	e.UserID = ownerID
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	if e.Date == "" {
		e.Date = core.DayString(e.CreatedAt)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, amount_cents, description, category, created_at, day)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Amount.Cents, e.Description, string(e.Category), e.CreatedAt.UTC(), e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	r.publishSnapshot(ctx, ownerID)
	return e, nil
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.publishSnapshot(ctx, ownerID)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, description, category, created_at, day
		FROM expenses WHERE user_id = ?
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		var e core.Expense
		var category string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Description, &category, &e.CreatedAt, &e.Date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.ParseCategory(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM expenses ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query expense owners: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	sub := r.hub.Subscribe(ownerID)
	r.publishSnapshot(ctx, ownerID)
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.Done():
		}
	}()
	return sub, nil
}

func (r *Repository) publishSnapshot(ctx context.Context, ownerID string) {
	snapshot, err := r.ListByUser(ctx, ownerID)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot refresh failed", "user_id", ownerID, "error", err)
		return
	}
	r.hub.Publish(ownerID, snapshot)
}

func (r *Repository) Get(ctx context.Context, ownerID string) (core.Budget, bool, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx, `
		SELECT amount_cents, income_cents, updated_at
		FROM budgets WHERE user_id = ?`, ownerID).
		Scan(&b.Amount.Cents, &b.Income.Cents, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("query budget: %w", err)
	}
	return b, true, nil
}

func (r *Repository) Put(ctx context.Context, ownerID string, b core.Budget) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, amount_cents, income_cents, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			income_cents = excluded.income_cents,
			updated_at = excluded.updated_at`,
		ownerID, b.Amount.Cents, b.Income.Cents, b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *Repository) AddDebt(ctx context.Context, ownerID string, d core.Debt) (core.Debt, error) {
	if d.UserID != "" && d.UserID != ownerID {
		return core.Debt{}, store.ErrWrongOwner
	}
	d.UserID = ownerID
	d.ID = uuid.NewString()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO debts (id, user_id, name, debt_type, total_cents, remaining_cents,
			interest_rate, monthly_payment_cents, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Name, d.Type, d.TotalAmount.Cents, d.RemainingAmount.Cents,
		d.InterestRate, d.MonthlyPayment.Cents, d.DueDate, d.CreatedAt.UTC())
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	return d, nil
}

func (r *Repository) DeleteDebt(ctx context.Context, ownerID, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM debts WHERE id = ? AND user_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return nil
}

func (r *Repository) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, debt_type, total_cents, remaining_cents,
			interest_rate, monthly_payment_cents, due_date, created_at
		FROM debts WHERE user_id = ?
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query debts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Debt, 0)
	for rows.Next() {
		var d core.Debt
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.TotalAmount.Cents,
			&d.RemainingAmount.Cents, &d.InterestRate, &d.MonthlyPayment.Cents,
			&d.DueDate, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) RecordPayment(ctx context.Context, ownerID, id string, payment core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE debts
		SET remaining_cents = MAX(0, remaining_cents - ?)
		WHERE id = ? AND user_id = ?`,
		payment.Cents, id, ownerID)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) AddRecurring(ctx context.Context, ownerID string, re core.RecurringExpense) (core.RecurringExpense, error) {
	if re.UserID != "" && re.UserID != ownerID {
		return core.RecurringExpense{}, store.ErrWrongOwner
	}
	re.UserID = ownerID
	re.ID = uuid.NewString()
	if re.CreatedAt.IsZero() {
		re.CreatedAt = r.now()
	}
	var lastApplied any
	if !re.LastApplied.IsZero() {
		lastApplied = re.LastApplied.UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_expenses (id, user_id, name, amount_cents, category,
			frequency, due_day, paid, created_at, last_applied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.ID, re.UserID, re.Name, re.Amount.Cents, string(re.Category),
		string(re.Frequency), re.DueDay, re.Paid, re.CreatedAt.UTC(), lastApplied)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", err)
	}
	return re, nil
}

func (r *Repository) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return nil
}

func (r *Repository) ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount_cents, category, frequency, due_day,
			paid, created_at, last_applied
		FROM recurring_expenses WHERE user_id = ?
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query recurring expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.RecurringExpense, 0)
	for rows.Next() {
		var re core.RecurringExpense
		var category, frequency string
		var lastApplied sql.NullTime
		if err := rows.Scan(&re.ID, &re.UserID, &re.Name, &re.Amount.Cents, &category,
			&frequency, &re.DueDay, &re.Paid, &re.CreatedAt, &lastApplied); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		re.Category = core.ParseCategory(category)
		re.Frequency = core.Frequency(frequency)
		if lastApplied.Valid {
			re.LastApplied = lastApplied.Time
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (r *Repository) ListAllRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount_cents, category, frequency, due_day,
			paid, created_at, last_applied
		FROM recurring_expenses
		ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("query all recurring expenses: %w", err)
	}
	defer rows.Close()

	out := make([]core.RecurringExpense, 0)
	for rows.Next() {
		var re core.RecurringExpense
		var category, frequency string
		var lastApplied sql.NullTime
		if err := rows.Scan(&re.ID, &re.UserID, &re.Name, &re.Amount.Cents, &category,
			&frequency, &re.DueDay, &re.Paid, &re.CreatedAt, &lastApplied); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		re.Category = core.ParseCategory(category)
		re.Frequency = core.Frequency(frequency)
		if lastApplied.Valid {
			re.LastApplied = lastApplied.Time
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (r *Repository) SetPaid(ctx context.Context, ownerID, id string, paid bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET paid = ? WHERE id = ? AND user_id = ?`,
		paid, id, ownerID)
	if err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkApplied(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_applied = ? WHERE id = ? AND user_id = ?`,
		at.UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("mark applied: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) AddIncome(ctx context.Context, ownerID string, src core.IncomeSource) (core.IncomeSource, error) {
	if src.UserID != "" && src.UserID != ownerID {
		return core.IncomeSource{}, store.ErrWrongOwner
	}
	src.UserID = ownerID
	src.ID = uuid.NewString()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO income_sources (id, user_id, source, amount_cents, category,
			frequency, recurring, income_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.UserID, src.Source, src.Amount.Cents, src.Category,
		string(src.Frequency), src.Recurring, src.Date, src.CreatedAt.UTC())
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("insert income source: %w", err)
	}
	return src, nil
}

func (r *Repository) DeleteIncome(ctx context.Context, ownerID, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM income_sources WHERE id = ? AND user_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	return nil
}

func (r *Repository) ListIncome(ctx context.Context, ownerID string) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, source, amount_cents, category, frequency,
			recurring, income_date, created_at
		FROM income_sources WHERE user_id = ?
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query income sources: %w", err)
	}
	defer rows.Close()

	out := make([]core.IncomeSource, 0)
	for rows.Next() {
		var src core.IncomeSource
		var frequency string
		if err := rows.Scan(&src.ID, &src.UserID, &src.Source, &src.Amount.Cents,
			&src.Category, &frequency, &src.Recurring, &src.Date, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		src.Frequency = core.Frequency(frequency)
		out = append(out, src)
	}
	return out, rows.Err()
}
