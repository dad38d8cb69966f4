package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/voice"
)

type expensePayload struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatedAt   string `json:"created_at"`
	Date        string `json:"date"`
}

func toExpensePayload(e core.Expense) expensePayload {
	return expensePayload{
		ID:          e.ID,
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Category:    string(e.Category),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
		Date:        e.Date,
	}
}

func toExpensePayloads(expenses []core.Expense) []expensePayload {
	out := make([]expensePayload, len(expenses))
	for i, e := range expenses {
		out[i] = toExpensePayload(e)
	}
	return out
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.List(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpensePayloads(expenses))
}

type createExpenseRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	created, err := s.expenses.Create(r.Context(), userID(r), services.ExpenseInput{
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.InvalidateUser(userID(r))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		log.FieldUserID, created.UserID,
		log.FieldDocID, created.ID,
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldCategory, string(created.Category))
	writeJSON(w, http.StatusCreated, toExpensePayload(created))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"

	if err := s.expenses.Delete(r.Context(), userID(r), r.PathValue("id"), confirmed); err != nil {
		writeDomainError(w, err)
		return
	}

	s.InvalidateUser(userID(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleExpenseStream pushes full expense snapshots over SSE. Each event
// carries the user's complete list; intermediate snapshots a slow client
// missed are skipped, only the latest state is delivered.
func (s *Server) handleExpenseStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.expenses.Subscribe(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-sub.C:
			if !open {
				return
			}
			payload, err := json.Marshal(toExpensePayloads(snapshot))
			if err != nil {
				s.structured.LogError(r.Context(), "Snapshot marshal failed", err,
					log.ComponentHTTP, "stream", log.NewFields().WithUser(userID(r)))
				return
			}
			if _, err := w.Write([]byte("event: snapshot\ndata: ")); err != nil {
				return
			}
			if _, err := w.Write(append(payload, '\n', '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type voiceParseRequest struct {
	Transcript string `json:"transcript"`
}

type voiceParseResponse struct {
	AmountCents int64  `json:"amount_cents"`
	HasAmount   bool   `json:"has_amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// handleVoiceParse turns a transcript into pre-filled expense fields.
// Parsing never fails; unrecognized transcripts come back with
// has_amount=false and whatever fields could be extracted.
func (s *Server) handleVoiceParse(w http.ResponseWriter, r *http.Request) {
	var req voiceParseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	parsed := voice.Parse(req.Transcript)
	writeJSON(w, http.StatusOK, voiceParseResponse{
		AmountCents: parsed.Amount.Cents,
		HasAmount:   parsed.HasAmount,
		Description: parsed.Description,
		Category:    string(parsed.Category),
	})
}
