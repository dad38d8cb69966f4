package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type categoryAmountPayload struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type dayTotalPayload struct {
	Day         string `json:"day"`
	AmountCents int64  `json:"amount_cents"`
}

type metricsPayload struct {
	Percent        float64 `json:"percent"`
	RemainingCents int64   `json:"remaining_cents"`
	SavingsCents   int64   `json:"savings_cents"`
	SavingsPercent float64 `json:"savings_percent"`
}

type alertPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type tipPayload struct {
	Tier    string `json:"tier"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type summaryResponse struct {
	Range             string                  `json:"range"`
	TotalCents        int64                   `json:"total_cents"`
	Breakdown         []categoryAmountPayload `json:"breakdown"`
	Metrics           metricsPayload          `json:"metrics"`
	Alert             *alertPayload           `json:"alert,omitempty"`
	Tip               tipPayload              `json:"tip"`
	Daily             []dayTotalPayload       `json:"daily"`
	AverageDailyCents int64                   `json:"average_daily_cents"`
}

// handleAnalyticsSummary aggregates the user's expenses over the requested
// range. Summaries are cached per (user, range) and invalidated whenever a
// write lands for that user.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	rng := core.ParseRange(r.URL.Query().Get("range"))
	key := uid + "|" + string(rng)

	if cached, found := s.summaryCache.Get(key); found {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit",
			log.FieldUserID, uid, log.FieldRange, string(rng))
		writeJSON(w, http.StatusOK, cached)
		return
	}

	expenses, err := s.expenses.List(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	budget, err := s.budgets.Get(r.Context(), uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary := buildSummary(expenses, budget, rng, time.Now())
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func buildSummary(expenses []core.Expense, budget core.Budget, rng core.Range, now time.Time) summaryResponse {
	filtered := core.FilterByRange(expenses, rng, now)
	total := core.TotalSpent(filtered)
	metrics := core.ComputeBudgetMetrics(total, budget.Amount, budget.Income)

	resp := summaryResponse{
		Range:      string(rng),
		TotalCents: total.Cents,
		Metrics: metricsPayload{
			Percent:        metrics.Percent,
			RemainingCents: metrics.Remaining.Cents,
			SavingsCents:   metrics.Savings.Cents,
			SavingsPercent: metrics.SavingsPercent,
		},
		AverageDailyCents: core.AverageDailySpending(total, rng).Cents,
		Breakdown:         make([]categoryAmountPayload, 0),
		Daily:             make([]dayTotalPayload, 0),
	}

	for _, ca := range core.CategoryBreakdown(filtered) {
		resp.Breakdown = append(resp.Breakdown, categoryAmountPayload{
			Category:    string(ca.Category),
			AmountCents: ca.Amount.Cents,
		})
	}
	for _, dt := range core.DailyTotals(filtered) {
		resp.Daily = append(resp.Daily, dayTotalPayload{
			Day:         dt.Day,
			AmountCents: dt.Amount.Cents,
		})
	}

	if alert := core.ClassifyAlert(metrics, budget.Amount); alert != nil {
		resp.Alert = &alertPayload{Level: string(alert.Level), Message: alert.Message}
	}
	tip := core.ClassifyTip(budget.Income, metrics)
	resp.Tip = tipPayload{Tier: string(tip.Tier), Title: tip.Title, Message: tip.Message}

	return resp
}
