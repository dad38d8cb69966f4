package voice

import (
	"testing"

	"fintrack/internal/core"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in       string
		cents    int64
		desc     string
		category core.Category
	}{
		{"add 50 for groceries", 5000, "groceries", core.CategoryFood},
		{"spent 12.50 on lunch", 1250, "lunch", core.CategoryFood},
		{"add 30 dollars for gas", 3000, "gas", core.CategoryTransport},
		{"I paid 99,99 for a new phone bill", 9999, "a new phone bill", core.CategoryBills},
		{"add 15 for the gym", 1500, "the gym", core.CategoryHealth},
		{"add 8 for netflix", 800, "netflix", core.CategoryEntertainment},
		{"bought shoes for 45", 4500, "bought shoes", core.CategoryShopping},
	}
	for _, tc := range cases {
		p := Parse(tc.in)
		if !p.HasAmount {
			t.Fatalf("Parse(%q): amount not found", tc.in)
		}
		if p.Amount.Cents != tc.cents {
			t.Fatalf("Parse(%q): amount = %d, want %d", tc.in, p.Amount.Cents, tc.cents)
		}
		if p.Description != tc.desc {
			t.Fatalf("Parse(%q): description = %q, want %q", tc.in, p.Description, tc.desc)
		}
		if p.Category != tc.category {
			t.Fatalf("Parse(%q): category = %s, want %s", tc.in, p.Category, tc.category)
		}
	}
}

func TestParseFirstNumberWins(t *testing.T) {
	p := Parse("add 50 for 2 pizzas")
	if !p.HasAmount || p.Amount.Cents != 5000 {
		t.Fatalf("amount = %+v, want 5000 (first number)", p.Amount)
	}
}

func TestParseDegradesWithoutError(t *testing.T) {
	p := Parse("add some money for food")
	if p.HasAmount {
		t.Fatalf("unexpected amount in %+v", p)
	}
	if p.Category != core.CategoryFood {
		t.Fatalf("category = %s, want food even without amount", p.Category)
	}
	if p.Description != "food" {
		t.Fatalf("description = %q, want %q", p.Description, "food")
	}

	empty := Parse("   ")
	if empty.HasAmount || empty.Description != "" || empty.Category != core.CategoryOther {
		t.Fatalf("blank transcript should yield empty draft, got %+v", empty)
	}
}
