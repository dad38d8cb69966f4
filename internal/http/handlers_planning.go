package http

import (
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/core"
)

func parseAmount(field, s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", field, core.ErrInvalidAmount)
	}
	return core.Money{Cents: cents}, nil
}

// --- Debts ---

type debtPayload struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	TotalAmountCents     int64   `json:"total_amount_cents"`
	RemainingAmountCents int64   `json:"remaining_amount_cents"`
	InterestRate         float64 `json:"interest_rate"`
	MonthlyPaymentCents  int64   `json:"monthly_payment_cents"`
	DueDate              string  `json:"due_date"`
}

func toDebtPayload(d core.Debt) debtPayload {
	return debtPayload{
		ID:                   d.ID,
		Name:                 d.Name,
		Type:                 d.Type,
		TotalAmountCents:     d.TotalAmount.Cents,
		RemainingAmountCents: d.RemainingAmount.Cents,
		InterestRate:         d.InterestRate,
		MonthlyPaymentCents:  d.MonthlyPayment.Cents,
		DueDate:              d.DueDate,
	}
}

type createDebtRequest struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	TotalAmount     string  `json:"total_amount"`
	RemainingAmount string  `json:"remaining_amount"`
	InterestRate    float64 `json:"interest_rate"`
	MonthlyPayment  string  `json:"monthly_payment"`
	DueDate         string  `json:"due_date"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.debts.List(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	remaining, monthly, err := s.debts.Totals(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payloads := make([]debtPayload, len(debts))
	for i, d := range debts {
		payloads[i] = toDebtPayload(d)
	}
	writeJSON(w, http.StatusOK, struct {
		Debts               []debtPayload `json:"debts"`
		RemainingCents      int64         `json:"remaining_cents"`
		MonthlyPaymentCents int64         `json:"monthly_payment_cents"`
	}{payloads, remaining.Cents, monthly.Cents})
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	total, err := parseAmount("total_amount", req.TotalAmount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	remaining := total
	if req.RemainingAmount != "" {
		if remaining, err = parseAmount("remaining_amount", req.RemainingAmount); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	monthly, err := parseAmount("monthly_payment", req.MonthlyPayment)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.debts.Add(r.Context(), userID(r), core.Debt{
		Name:            sanitizeInput(req.Name),
		Type:            sanitizeInput(req.Type),
		TotalAmount:     total,
		RemainingAmount: remaining,
		InterestRate:    req.InterestRate,
		MonthlyPayment:  monthly,
		DueDate:         req.DueDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebtPayload(created))
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.debts.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type debtPaymentRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleDebtPayment(w http.ResponseWriter, r *http.Request) {
	var req debtPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	payment, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.debts.RecordPayment(r.Context(), userID(r), r.PathValue("id"), payment); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Recurring expenses ---

type recurringPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	DueDay      int    `json:"due_day"`
	Paid        bool   `json:"paid"`
	LastApplied string `json:"last_applied,omitempty"`
}

func toRecurringPayload(re core.RecurringExpense) recurringPayload {
	p := recurringPayload{
		ID:          re.ID,
		Name:        re.Name,
		AmountCents: re.Amount.Cents,
		Category:    string(re.Category),
		Frequency:   string(re.Frequency),
		DueDay:      re.DueDay,
		Paid:        re.Paid,
	}
	if !re.LastApplied.IsZero() {
		p.LastApplied = re.LastApplied.UTC().Format(time.RFC3339)
	}
	return p
}

type createRecurringRequest struct {
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	Frequency string `json:"frequency"`
	DueDay    int    `json:"due_day"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	templates, err := s.recurring.List(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	monthly, err := s.recurring.MonthlyTotal(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payloads := make([]recurringPayload, len(templates))
	for i, re := range templates {
		payloads[i] = toRecurringPayload(re)
	}
	writeJSON(w, http.StatusOK, struct {
		Recurring         []recurringPayload `json:"recurring"`
		MonthlyTotalCents int64              `json:"monthly_total_cents"`
	}{payloads, monthly.Cents})
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.recurring.Add(r.Context(), userID(r), core.RecurringExpense{
		Name:      sanitizeInput(req.Name),
		Amount:    amount,
		Category:  core.ParseCategory(req.Category),
		Frequency: core.Frequency(req.Frequency),
		DueDay:    req.DueDay,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringPayload(created))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.recurring.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recurringPaidRequest struct {
	Paid bool `json:"paid"`
}

func (s *Server) handleRecurringPaid(w http.ResponseWriter, r *http.Request) {
	var req recurringPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.recurring.SetPaid(r.Context(), userID(r), r.PathValue("id"), req.Paid); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Income sources ---

type incomePayload struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	Recurring   bool   `json:"recurring"`
	Date        string `json:"date"`
}

func toIncomePayload(src core.IncomeSource) incomePayload {
	return incomePayload{
		ID:          src.ID,
		Source:      src.Source,
		AmountCents: src.Amount.Cents,
		Category:    src.Category,
		Frequency:   string(src.Frequency),
		Recurring:   src.Recurring,
		Date:        src.Date,
	}
}

type createIncomeRequest struct {
	Source    string `json:"source"`
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	Frequency string `json:"frequency"`
	Recurring bool   `json:"recurring"`
	Date      string `json:"date"`
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	sources, err := s.income.List(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	monthly, err := s.income.MonthlyTotal(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payloads := make([]incomePayload, len(sources))
	for i, src := range sources {
		payloads[i] = toIncomePayload(src)
	}
	writeJSON(w, http.StatusOK, struct {
		Income            []incomePayload `json:"income"`
		MonthlyTotalCents int64           `json:"monthly_total_cents"`
	}{payloads, monthly.Cents})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.income.Add(r.Context(), userID(r), core.IncomeSource{
		Source:    sanitizeInput(req.Source),
		Amount:    amount,
		Category:  sanitizeInput(req.Category),
		Frequency: core.Frequency(req.Frequency),
		Recurring: req.Recurring,
		Date:      req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncomePayload(created))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.income.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
