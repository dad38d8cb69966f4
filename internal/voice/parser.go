// Package voice turns free-form spoken commands into structured expense
// drafts. Parsing is heuristic: the first decimal number is the amount, the
// words after "for" or "on" become the description, and a keyword table
// picks the category. Parsing never fails; missing pieces come back empty
// so the caller can let the user fill them in.
package voice

import (
	"regexp"
	"strings"

	"fintrack/internal/core"
)

// Parsed is the structured result of parsing a transcript. HasAmount is
// false when no number was found; Description may be empty.
type Parsed struct {
	Amount      core.Money
	HasAmount   bool
	Description string
	Category    core.Category
}

var amountPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// categoryKeywords maps trigger words to categories, scanned in priority
// order. The first category with a matching keyword wins.
var categoryKeywords = []struct {
	category core.Category
	words    []string
}{
	{core.CategoryFood, []string{"food", "grocery", "groceries", "restaurant", "lunch", "dinner", "breakfast", "coffee", "eat"}},
	{core.CategoryTransport, []string{"gas", "fuel", "uber", "taxi", "bus", "train", "parking", "car"}},
	{core.CategoryShopping, []string{"shopping", "clothes", "amazon", "store", "buy", "bought"}},
	{core.CategoryEntertainment, []string{"movie", "game", "entertainment", "netflix", "spotify", "concert"}},
	{core.CategoryBills, []string{"bill", "bills", "electricity", "water", "internet", "rent", "phone"}},
	{core.CategoryHealth, []string{"doctor", "medicine", "pharmacy", "hospital", "gym", "health"}},
}

// Parse extracts an expense draft from a spoken transcript such as
// "add 50 dollars for groceries".
func Parse(transcript string) Parsed {
	lower := strings.ToLower(strings.TrimSpace(transcript))
	p := Parsed{Category: core.CategoryOther}
	if lower == "" {
		return p
	}

	match := amountPattern.FindString(lower)
	if match != "" {
		if cents, err := core.ParseDecimalToCents(match); err == nil {
			p.Amount = core.Money{Cents: cents}
			p.HasAmount = true
		}
	}

	p.Description = extractDescription(lower, match)
	p.Category = matchCategory(lower)
	return p
}

// extractDescription takes the words after the first "for" or "on"
// connective. When neither appears, it falls back to the transcript with
// the matched amount and a trailing "for"/"on" stripped out.
func extractDescription(lower, amount string) string {
	for _, sep := range []string{" for ", " on "} {
		if i := strings.Index(lower, sep); i >= 0 {
			if rest := cleanDescription(lower[i+len(sep):], amount); rest != "" {
				return rest
			}
		}
	}
	return cleanDescription(lower, amount)
}

func cleanDescription(s, amount string) string {
	if amount != "" {
		s = strings.Replace(s, amount, "", 1)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "dollars"))
	for _, w := range []string{"for", "on"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, " "+w))
		s = strings.TrimSpace(strings.TrimPrefix(s, w+" "))
	}
	return s
}

func matchCategory(lower string) core.Category {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if set[w] {
				return ck.category
			}
		}
	}
	return core.CategoryOther
}
