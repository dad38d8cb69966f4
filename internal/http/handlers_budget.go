package http

import (
	"net/http"
	"time"

	"fintrack/internal/log"
)

type budgetPayload struct {
	AmountCents int64  `json:"amount_cents"`
	IncomeCents int64  `json:"income_cents"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.Get(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload := budgetPayload{
		AmountCents: b.Amount.Cents,
		IncomeCents: b.Income.Cents,
	}
	if !b.UpdatedAt.IsZero() {
		payload.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

type putBudgetRequest struct {
	Amount        string `json:"amount"`
	Income        string `json:"income"`
	AckOverBudget bool   `json:"ack_over_budget"`
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	var req putBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	b, err := s.budgets.Save(r.Context(), userID(r), req.Amount, req.Income, req.AckOverBudget)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.InvalidateUser(userID(r))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget saved",
		log.FieldUserID, userID(r),
		log.FieldAmountCents, b.Amount.Cents)
	writeJSON(w, http.StatusOK, budgetPayload{
		AmountCents: b.Amount.Cents,
		IncomeCents: b.Income.Cents,
		UpdatedAt:   b.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
