package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

func TestProcessDueMaterializesTemplates(t *testing.T) {
	mem := memory.New()
	pub := &recordingPublisher{}
	p := NewRecurringProcessor(mem, mem, pub)
	ctx := context.Background()

	mem.AddRecurring(ctx, "u1", core.RecurringExpense{
		Name:      "rent",
		Amount:    core.Money{Cents: 120000},
		Category:  core.CategoryBills,
		Frequency: core.Monthly,
		DueDay:    1,
	})
	mem.AddRecurring(ctx, "u2", core.RecurringExpense{
		Name:      "gym",
		Amount:    core.Money{Cents: 3000},
		Category:  core.CategoryHealth,
		Frequency: core.Weekly,
		DueDay:    1,
	})

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	n, err := p.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed = %d, want 2", n)
	}

	u1, _ := mem.ListByUser(ctx, "u1")
	if len(u1) != 1 || u1[0].Description != "rent" || u1[0].Amount.Cents != 120000 {
		t.Fatalf("u1 expenses = %+v", u1)
	}
	u2, _ := mem.ListByUser(ctx, "u2")
	if len(u2) != 1 || u2[0].Category != core.CategoryHealth {
		t.Fatalf("u2 expenses = %+v", u2)
	}
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
}

func TestProcessDueIsIdempotentWithinCycle(t *testing.T) {
	mem := memory.New()
	p := NewRecurringProcessor(mem, mem, nil)
	ctx := context.Background()

	mem.AddRecurring(ctx, "u1", core.RecurringExpense{
		Name:      "rent",
		Amount:    core.Money{Cents: 120000},
		Category:  core.CategoryBills,
		Frequency: core.Monthly,
		DueDay:    1,
	})

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	p.ProcessDue(ctx, now)

	// Second pass in the same month creates nothing.
	n, err := p.ProcessDue(ctx, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if n != 0 {
		t.Fatalf("second pass processed %d, want 0", n)
	}
	list, _ := mem.ListByUser(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expenses = %d, want 1", len(list))
	}

	// Next month it fires again.
	n, _ = p.ProcessDue(ctx, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
	if n != 1 {
		t.Fatalf("next month processed %d, want 1", n)
	}
}

func TestProcessDueSkipsNotYetDue(t *testing.T) {
	mem := memory.New()
	p := NewRecurringProcessor(mem, mem, nil)
	ctx := context.Background()

	mem.AddRecurring(ctx, "u1", core.RecurringExpense{
		Name:      "insurance",
		Amount:    core.Money{Cents: 8000},
		Category:  core.CategoryBills,
		Frequency: core.Monthly,
		DueDay:    25,
	})

	n, err := p.ProcessDue(ctx, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 0 {
		t.Fatalf("processed %d before due day, want 0", n)
	}
}
