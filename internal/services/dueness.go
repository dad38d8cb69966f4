// This file implements the strategy pattern for recurring-expense dueness.
// Each frequency has its own checker encapsulating when a template should
// materialize again.

package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a recurring expense template is due based
// on when it last materialized and the template itself.
type DuenessChecker interface {
	IsDue(lastApplied, now time.Time, re core.RecurringExpense) bool
}

// WeeklyChecker is due once 7 or more days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastApplied, now time.Time, _ core.RecurringExpense) bool {
	if lastApplied.IsZero() {
		return true
	}
	daysSince := now.Sub(lastApplied).Hours() / 24
	return daysSince >= 7
}

// BiWeeklyChecker is due once 14 or more days have passed.
type BiWeeklyChecker struct{}

func (BiWeeklyChecker) IsDue(lastApplied, now time.Time, _ core.RecurringExpense) bool {
	if lastApplied.IsZero() {
		return true
	}
	daysSince := now.Sub(lastApplied).Hours() / 24
	return daysSince >= 14
}

// MonthlyChecker is due in a new month once the due day is reached.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastApplied, now time.Time, re core.RecurringExpense) bool {
	if lastApplied.IsZero() {
		return now.Day() >= clampDay(re.DueDay, now)
	}

	// Already materialized this month?
	if lastApplied.Year() == now.Year() && lastApplied.Month() == now.Month() {
		return false
	}

	return now.Day() >= clampDay(re.DueDay, now)
}

// YearlyChecker is due in a new year once the anchor month's due day is
// reached. The template's creation month anchors the cycle.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastApplied, now time.Time, re core.RecurringExpense) bool {
	if lastApplied.IsZero() {
		return true
	}
	if lastApplied.Year() == now.Year() {
		return false
	}

	targetMonth := int(re.CreatedAt.Month())
	if int(now.Month()) < targetMonth {
		return false
	}
	if int(now.Month()) == targetMonth {
		return now.Day() >= clampDay(re.DueDay, now)
	}
	return true
}

// clampDay pulls a due day past the end of the month (e.g. 31 in February)
// back to the month's last day.
func clampDay(day int, now time.Time) int {
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

// duenessStrategies maps frequencies to their checkers.
var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Weekly:   WeeklyChecker{},
	core.BiWeekly: BiWeeklyChecker{},
	core.Monthly:  MonthlyChecker{},
	core.Yearly:   YearlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return checker, nil
}
