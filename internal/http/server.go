// Package http exposes the JSON API: authentication, expense tracking with
// live snapshots over SSE, budgets, analytics summaries, voice parsing and
// the planning collections (debts, recurring expenses, income sources).
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// Options tunes the server's rate limiting and summary cache.
type Options struct {
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
}

func (o *Options) applyDefaults() {
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 60
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 1000
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Minute
	}
}

type Server struct {
	http.Server

	auth      *auth.Service
	expenses  *services.ExpenseService
	budgets   *services.BudgetService
	debts     *services.DebtService
	income    *services.IncomeService
	recurring *services.RecurringService
	backend   store.Backend

	// summaryCache holds analytics summaries keyed "<userID>|<range>".
	summaryCache *cache.LRUCache[summaryResponse]
	cacheManager *cache.Manager

	rateLimiter  *rateLimiter
	logger       *log.Logger
	structured   *log.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, backend store.Backend, publisher services.ChangePublisher, logger *log.Logger, opts Options) *Server {
	opts.applyDefaults()
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		auth:         authSvc,
		expenses:     services.NewExpenseService(backend, publisher),
		budgets:      services.NewBudgetService(backend),
		debts:        services.NewDebtService(backend),
		income:       services.NewIncomeService(backend),
		recurring:    services.NewRecurringService(backend),
		backend:      backend,
		summaryCache: cache.NewLRUCache[summaryResponse](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute),
		logger:       logger.WithComponent(log.ComponentHTTP),
	}
	s.structured = log.NewStructuredLogger(s.logger)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withSecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/mfa/resolve", s.handleMFAResolve)
	mux.HandleFunc("POST /api/auth/signout", s.requireAuth(s.handleSignOut))
	mux.HandleFunc("POST /api/auth/mfa/enroll", s.requireAuth(s.handleMFAEnroll))

	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/expenses/stream", s.requireAuth(s.handleExpenseStream))
	mux.HandleFunc("POST /api/voice/parse", s.requireAuth(s.handleVoiceParse))

	mux.HandleFunc("GET /api/budget", s.requireAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.requireAuth(s.handlePutBudget))

	mux.HandleFunc("GET /api/analytics/summary", s.requireAuth(s.handleAnalyticsSummary))

	mux.HandleFunc("GET /api/debts", s.requireAuth(s.handleListDebts))
	mux.HandleFunc("POST /api/debts", s.requireAuth(s.handleCreateDebt))
	mux.HandleFunc("DELETE /api/debts/{id}", s.requireAuth(s.handleDeleteDebt))
	mux.HandleFunc("POST /api/debts/{id}/payments", s.requireAuth(s.handleDebtPayment))

	mux.HandleFunc("GET /api/recurring", s.requireAuth(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.requireAuth(s.handleCreateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.requireAuth(s.handleDeleteRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}/paid", s.requireAuth(s.handleRecurringPaid))

	mux.HandleFunc("GET /api/income", s.requireAuth(s.handleListIncome))
	mux.HandleFunc("POST /api/income", s.requireAuth(s.handleCreateIncome))
	mux.HandleFunc("DELETE /api/income/{id}", s.requireAuth(s.handleDeleteIncome))

	return s
}

// Shutdown stops the cleanup goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// InvalidateUser drops every cached summary the user has. Called locally
// after writes and remotely when a change event arrives from another node.
func (s *Server) InvalidateUser(userID string) {
	s.summaryCache.DeletePrefix(userID + "|")
}

type contextKey string

const userIDContextKey contextKey = "user_id"

// requireAuth rejects requests without a valid bearer token and stamps the
// authenticated user's id into the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		uid, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDContextKey, uid)
		next(w, r.WithContext(ctx))
	}
}

func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDContextKey).(string)
	return uid
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to every response.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := log.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		s.structured.LogHTTPStart(ctx, r, ip)

		if isMutating(r.Method) && !s.rateLimiter.allow(ip) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
// Flush is forwarded so the SSE handler keeps working behind it.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// pinger is implemented by backends that can verify their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.backend.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.structured.LogError(r.Context(), "Readiness check failed", err,
				log.ComponentStore, "ping", log.NewFields())
			writeError(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
