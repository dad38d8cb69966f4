package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/store/memory"
)

// recordingPublisher captures published change events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.ChangeEvent
	fail   bool
}

func (p *recordingPublisher) PublishChange(ctx context.Context, e *events.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, e)
	return nil
}

func TestCreateValidatesBeforeWrite(t *testing.T) {
	mem := memory.New()
	svc := NewExpenseService(mem, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"bad amount", ExpenseInput{Amount: "abc", Description: "x"}, core.ErrInvalidAmount},
		{"negative amount", ExpenseInput{Amount: "-5", Description: "x"}, core.ErrInvalidAmount},
		{"empty description", ExpenseInput{Amount: "10", Description: "  "}, core.ErrEmptyDescription},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, "u1", tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	// Nothing reached the store.
	list, _ := svc.List(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("invalid input was written: %v", list)
	}
}

func TestCreateStampsOwnerAndPublishes(t *testing.T) {
	mem := memory.New()
	pub := &recordingPublisher{}
	svc := NewExpenseService(mem, pub)
	ctx := context.Background()

	e, err := svc.Create(ctx, "u1", ExpenseInput{
		Amount:      "12.50",
		Description: "lunch",
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.UserID != "u1" || e.Amount.Cents != 1250 || e.Category != core.CategoryFood {
		t.Fatalf("created = %+v", e)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Collection != "expenses" || ev.Op != events.OpCreate || ev.UserID != "u1" || ev.DocID != e.ID {
		t.Fatalf("event = %+v", ev)
	}
}

func TestCreateUnknownCategoryFallsBack(t *testing.T) {
	svc := NewExpenseService(memory.New(), nil)
	e, err := svc.Create(context.Background(), "u1", ExpenseInput{
		Amount: "5", Description: "misc", Category: "crypto",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Category != core.CategoryOther {
		t.Fatalf("category = %s, want other", e.Category)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	mem := memory.New()
	svc := NewExpenseService(mem, &recordingPublisher{fail: true})

	if _, err := svc.Create(context.Background(), "u1", ExpenseInput{
		Amount: "10", Description: "x", Category: "food",
	}); err != nil {
		t.Fatalf("create failed on publish error: %v", err)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	mem := memory.New()
	pub := &recordingPublisher{}
	svc := NewExpenseService(mem, pub)
	ctx := context.Background()

	e, _ := svc.Create(ctx, "u1", ExpenseInput{Amount: "10", Description: "x", Category: "food"})
	pub.events = nil

	if err := svc.Delete(ctx, "u1", e.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed delete: %v, want ErrConfirmationRequired", err)
	}
	list, _ := svc.List(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("unconfirmed delete touched the store")
	}
	if len(pub.events) != 0 {
		t.Fatalf("unconfirmed delete published %v", pub.events)
	}

	if err := svc.Delete(ctx, "u1", e.ID, true); err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	list, _ = svc.List(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("expense survived confirmed delete")
	}
	if len(pub.events) != 1 || pub.events[0].Op != events.OpDelete {
		t.Fatalf("delete events = %v", pub.events)
	}
}

func TestDeleteMissingIsIdempotent(t *testing.T) {
	svc := NewExpenseService(memory.New(), nil)
	if err := svc.Delete(context.Background(), "u1", "never-existed", true); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
