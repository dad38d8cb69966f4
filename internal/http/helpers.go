package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// Request bodies above this are rejected outright.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrEmptyDescription,
	core.ErrEmptyUserID,
	core.ErrEmptyName,
	core.ErrInvalidCategory,
	core.ErrInvalidFrequency,
	core.ErrInvalidDueDay,
	services.ErrConfirmationRequired,
	services.ErrBudgetExceedsIncome,
	auth.ErrEmailTaken,
	auth.ErrWeakPassword,
}

var authErrors = []error{
	auth.ErrInvalidCredentials,
	auth.ErrInvalidToken,
	auth.ErrMFAFailed,
	auth.ErrResolverExpired,
	auth.ErrUnknownResolver,
	auth.ErrUnknownFactor,
}

// statusFor maps a domain error onto the API's status contract: bad input
// is 422, failed authentication is 401, unknown records are 404 and
// everything else is a 500. Ownership mismatches read as 404 so one user's
// ids reveal nothing to another.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrWrongOwner):
		return http.StatusNotFound
	default:
	}
	for _, ve := range validationErrors {
		if errors.Is(err, ve) {
			return http.StatusUnprocessableEntity
		}
	}
	for _, ae := range authErrors {
		if errors.Is(err, ae) {
			return http.StatusUnauthorized
		}
	}
	return http.StatusInternalServerError
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// clientIP extracts the caller's address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
