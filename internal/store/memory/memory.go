// Package memory is the in-memory store backend: mutex-guarded maps keyed
// by owner, uuid document IDs, live snapshots through the shared hub. It is
// the default dev backend and the reference implementation the service and
// HTTP tests run against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	expenses  map[string]map[string]core.Expense
	budgets   map[string]core.Budget
	debts     map[string]map[string]core.Debt
	recurring map[string]map[string]core.RecurringExpense
	income    map[string]map[string]core.IncomeSource

	hub *store.Hub
	now func() time.Time
}

func New() *Store {
	return &Store{
		expenses:  make(map[string]map[string]core.Expense),
		budgets:   make(map[string]core.Budget),
		debts:     make(map[string]map[string]core.Debt),
		recurring: make(map[string]map[string]core.RecurringExpense),
		income:    make(map[string]map[string]core.IncomeSource),
		hub:       store.NewHub(),
		now:       time.Now,
	}
}

// Hub exposes the snapshot fan-out so the change-event consumer can force
// a re-delivery when another instance writes.
func (s *Store) Hub() *store.Hub { return s.hub }

func (s *Store) Add(ctx context.Context, ownerID string, e core.Expense) (core.Expense, error) {
	if e.UserID != "" && e.UserID != ownerID {
		return core.Expense{}, store.ErrWrongOwner
	}
	e.UserID = ownerID
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.Date == "" {
		e.Date = core.DayString(e.CreatedAt)
	}

	s.mu.Lock()
	if s.expenses[ownerID] == nil {
		s.expenses[ownerID] = make(map[string]core.Expense)
	}
	s.expenses[ownerID][e.ID] = e
	snapshot := s.snapshotLocked(ownerID)
	s.mu.Unlock()

	s.hub.Publish(ownerID, snapshot)
	return e, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	m := s.expenses[ownerID]
	if _, ok := m[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(m, id)
	snapshot := s.snapshotLocked(ownerID)
	s.mu.Unlock()

	s.hub.Publish(ownerID, snapshot)
	return nil
}

func (s *Store) ListByUser(ctx context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(ownerID), nil
}

func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]string, 0, len(s.expenses))
	for id, m := range s.expenses {
		if len(m) > 0 {
			owners = append(owners, id)
		}
	}
	sort.Strings(owners)
	return owners, nil
}

func (s *Store) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	sub := s.hub.Subscribe(ownerID)

	s.mu.RLock()
	snapshot := s.snapshotLocked(ownerID)
	s.mu.RUnlock()
	s.hub.Publish(ownerID, snapshot)

	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.Done():
		}
	}()
	return sub, nil
}

// snapshotLocked copies the owner's expenses newest first. Callers hold
// at least a read lock.
func (s *Store) snapshotLocked(ownerID string) []core.Expense {
	m := s.expenses[ownerID]
	out := make([]core.Expense, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Get(ctx context.Context, ownerID string) (core.Budget, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[ownerID]
	return b, ok, nil
}

func (s *Store) Put(ctx context.Context, ownerID string, b core.Budget) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.budgets[ownerID] = b
	s.mu.Unlock()
	return nil
}

func (s *Store) AddDebt(ctx context.Context, ownerID string, d core.Debt) (core.Debt, error) {
	if d.UserID != "" && d.UserID != ownerID {
		return core.Debt{}, store.ErrWrongOwner
	}
	d.UserID = ownerID
	d.ID = uuid.NewString()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debts[ownerID] == nil {
		s.debts[ownerID] = make(map[string]core.Debt)
	}
	s.debts[ownerID][d.ID] = d
	return d, nil
}

func (s *Store) DeleteDebt(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.debts[ownerID], id)
	return nil
}

func (s *Store) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.debts[ownerID]
	out := make([]core.Debt, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RecordPayment(ctx context.Context, ownerID, id string, payment core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debts[ownerID][id]
	if !ok {
		return store.ErrNotFound
	}
	d.RemainingAmount.Cents -= payment.Cents
	if d.RemainingAmount.Cents < 0 {
		d.RemainingAmount.Cents = 0
	}
	s.debts[ownerID][id] = d
	return nil
}

func (s *Store) AddRecurring(ctx context.Context, ownerID string, r core.RecurringExpense) (core.RecurringExpense, error) {
	if r.UserID != "" && r.UserID != ownerID {
		return core.RecurringExpense{}, store.ErrWrongOwner
	}
	r.UserID = ownerID
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recurring[ownerID] == nil {
		s.recurring[ownerID] = make(map[string]core.RecurringExpense)
	}
	s.recurring[ownerID][r.ID] = r
	return r, nil
}

func (s *Store) DeleteRecurring(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recurring[ownerID], id)
	return nil
}

func (s *Store) ListRecurring(ctx context.Context, ownerID string) ([]core.RecurringExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.recurring[ownerID]
	out := make([]core.RecurringExpense, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAllRecurring(ctx context.Context) ([]core.RecurringExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringExpense
	for _, m := range s.recurring {
		for _, r := range m {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetPaid(ctx context.Context, ownerID, id string, paid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[ownerID][id]
	if !ok {
		return store.ErrNotFound
	}
	r.Paid = paid
	s.recurring[ownerID][id] = r
	return nil
}

func (s *Store) MarkApplied(ctx context.Context, ownerID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recurring[ownerID][id]
	if !ok {
		return store.ErrNotFound
	}
	r.LastApplied = at
	s.recurring[ownerID][id] = r
	return nil
}

func (s *Store) AddIncome(ctx context.Context, ownerID string, src core.IncomeSource) (core.IncomeSource, error) {
	if src.UserID != "" && src.UserID != ownerID {
		return core.IncomeSource{}, store.ErrWrongOwner
	}
	src.UserID = ownerID
	src.ID = uuid.NewString()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.income[ownerID] == nil {
		s.income[ownerID] = make(map[string]core.IncomeSource)
	}
	s.income[ownerID][src.ID] = src
	return src, nil
}

func (s *Store) DeleteIncome(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.income[ownerID], id)
	return nil
}

func (s *Store) ListIncome(ctx context.Context, ownerID string) ([]core.IncomeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.income[ownerID]
	out := make([]core.IncomeSource, 0, len(m))
	for _, src := range m {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
