package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/store/memory"
)

// codeVerifier accepts a challenge code equal to the factor's secret.
type codeVerifier struct{}

func (codeVerifier) Verify(_ context.Context, f auth.Factor, code string) error {
	if code != f.Secret {
		return fmt.Errorf("bad code")
	}
	return nil
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *Server) {
	t.Helper()

	authSvc := auth.NewService([]byte("test-secret-0123456789"), time.Hour, auth.NewSessionProvider(), codeVerifier{})
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	srv := NewServer(":0", authSvc, memory.New(), nil, logger, opts)

	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ts, srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func signUp(t *testing.T, base, email string) string {
	t.Helper()
	resp, raw := doJSON(t, http.MethodPost, base+"/api/auth/signup", "", map[string]string{
		"email": email, "password": "longenough",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", resp.StatusCode, raw)
	}
	var out sessionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	return out.Token
}

func TestRequiresBearerToken(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/expenses", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "12.50", "description": "lunch", "category": "food",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, raw)
	}
	var created expensePayload
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.AmountCents != 1250 || created.Category != "food" {
		t.Fatalf("created = %+v", created)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var listed []expensePayload
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v", listed)
	}

	// Deleting without confirmation is refused before touching the store.
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/expenses/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unconfirmed delete status = %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/expenses/"+created.ID+"?confirm=true", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("confirmed delete status = %d, want 204", resp.StatusCode)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", token, nil)
	listed = nil
	_ = json.Unmarshal(raw, &listed)
	if len(listed) != 0 {
		t.Fatalf("expenses after delete = %+v", listed)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "abc", "description": "lunch",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad amount status = %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "5", "description": "   ",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("blank description status = %d, want 422", resp.StatusCode)
	}
}

func TestBudgetAcknowledgementFlow(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/budget", token, map[string]any{
		"amount": "3000", "income": "2000",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("over-income save status = %d, want 422", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodPut, ts.URL+"/api/budget", token, map[string]any{
		"amount": "3000", "income": "2000", "ack_over_budget": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acknowledged save status = %d, body %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/budget", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var b budgetPayload
	if err := json.Unmarshal(raw, &b); err != nil {
		t.Fatalf("decode budget: %v", err)
	}
	if b.AmountCents != 300000 || b.IncomeCents != 200000 {
		t.Fatalf("budget = %+v", b)
	}
}

func TestAnalyticsSummaryReflectsWrites(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	doJSON(t, http.MethodPut, ts.URL+"/api/budget", token, map[string]any{"amount": "100"})
	doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "20", "description": "groceries", "category": "food",
	})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/analytics/summary?range=month", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, body %s", resp.StatusCode, raw)
	}
	var sum summaryResponse
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalCents != 2000 || sum.Metrics.Percent != 20 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Breakdown) != 1 || sum.Breakdown[0].Category != "food" {
		t.Fatalf("breakdown = %+v", sum.Breakdown)
	}

	// A new write invalidates the cached summary.
	doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "30", "description": "taxi", "category": "transport",
	})
	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/analytics/summary?range=month", token, nil)
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode second summary: %v", err)
	}
	if sum.TotalCents != 5000 {
		t.Fatalf("total after second expense = %d, want 5000", sum.TotalCents)
	}
}

func TestVoiceParseDegradesGracefully(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/voice/parse", token, map[string]string{
		"transcript": "spent 25 dollars on groceries",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("parse status = %d", resp.StatusCode)
	}
	var parsed voiceParseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode parse: %v", err)
	}
	if !parsed.HasAmount || parsed.AmountCents != 2500 || parsed.Category != "food" {
		t.Fatalf("parsed = %+v", parsed)
	}

	// Unintelligible transcripts still answer 200 with partial fields.
	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/voice/parse", token, map[string]string{
		"transcript": "mumble mumble",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("degraded parse status = %d", resp.StatusCode)
	}
	_ = json.Unmarshal(raw, &parsed)
	if parsed.HasAmount {
		t.Fatalf("degraded parse claimed an amount: %+v", parsed)
	}
}

func TestMFAInterruptAndResume(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/auth/mfa/enroll", token, map[string]string{
		"kind": "totp", "display_name": "phone", "secret": "123456",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll status = %d, body %s", resp.StatusCode, raw)
	}
	var factor auth.FactorHint
	if err := json.Unmarshal(raw, &factor); err != nil {
		t.Fatalf("decode factor: %v", err)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/auth/signin", "", map[string]string{
		"email": "a@example.com", "password": "longenough",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("signin with factor status = %d, want 401", resp.StatusCode)
	}
	var challenge mfaChallengeResponse
	if err := json.Unmarshal(raw, &challenge); err != nil {
		t.Fatalf("decode challenge: %v", err)
	}
	if challenge.Error != "mfa_required" || challenge.ResolverToken == "" || len(challenge.Factors) != 1 {
		t.Fatalf("challenge = %+v", challenge)
	}

	// Wrong code keeps the challenge open.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/auth/mfa/resolve", "", map[string]string{
		"resolver_token": challenge.ResolverToken, "factor_id": factor.ID, "code": "000000",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong code status = %d, want 401", resp.StatusCode)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/auth/mfa/resolve", "", map[string]string{
		"resolver_token": challenge.ResolverToken, "factor_id": factor.ID, "code": "123456",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status = %d, body %s", resp.StatusCode, raw)
	}
	var session sessionResponse
	if err := json.Unmarshal(raw, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("resolved session has no token")
	}
}

func TestDebtEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/debts", token, map[string]any{
		"name": "car loan", "type": "loan",
		"total_amount": "5000", "monthly_payment": "250",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create debt status = %d, body %s", resp.StatusCode, raw)
	}
	var debt debtPayload
	if err := json.Unmarshal(raw, &debt); err != nil {
		t.Fatalf("decode debt: %v", err)
	}
	if debt.RemainingAmountCents != 500000 {
		t.Fatalf("remaining defaults to total, got %d", debt.RemainingAmountCents)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/debts/"+debt.ID+"/payments", token, map[string]string{
		"amount": "250",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("payment status = %d", resp.StatusCode)
	}

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/debts", token, nil)
	var out struct {
		Debts               []debtPayload `json:"debts"`
		RemainingCents      int64         `json:"remaining_cents"`
		MonthlyPaymentCents int64         `json:"monthly_payment_cents"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode debts: %v", err)
	}
	if out.RemainingCents != 475000 || out.MonthlyPaymentCents != 25000 {
		t.Fatalf("totals = %+v", out)
	}

	// Unknown debt ids answer 404.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/debts/nope/payments", token, map[string]string{
		"amount": "10",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown debt payment status = %d, want 404", resp.StatusCode)
	}
}

func TestRecurringAndIncomeEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/recurring", token, map[string]any{
		"name": "rent", "amount": "1200", "category": "bills", "frequency": "monthly", "due_day": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring status = %d, body %s", resp.StatusCode, raw)
	}
	var re recurringPayload
	_ = json.Unmarshal(raw, &re)

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/recurring/"+re.ID+"/paid", token, map[string]bool{"paid": true})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set paid status = %d", resp.StatusCode)
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/api/income", token, map[string]any{
		"source": "salary", "amount": "4000", "frequency": "monthly", "recurring": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create income status = %d, body %s", resp.StatusCode, raw)
	}

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/income", token, nil)
	var incomes struct {
		Income            []incomePayload `json:"income"`
		MonthlyTotalCents int64           `json:"monthly_total_cents"`
	}
	if err := json.Unmarshal(raw, &incomes); err != nil {
		t.Fatalf("decode income: %v", err)
	}
	if incomes.MonthlyTotalCents != 400000 {
		t.Fatalf("monthly income = %d, want 400000", incomes.MonthlyTotalCents)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	tokenA := signUp(t, ts.URL, "a@example.com")
	tokenB := signUp(t, ts.URL, "b@example.com")

	_, raw := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", tokenA, map[string]string{
		"amount": "10", "description": "coffee",
	})
	var created expensePayload
	_ = json.Unmarshal(raw, &created)

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", tokenB, nil)
	var listed []expensePayload
	_ = json.Unmarshal(raw, &listed)
	if len(listed) != 0 {
		t.Fatalf("user B sees user A's expenses: %+v", listed)
	}

	// A cross-user delete is a scoped no-op: the record survives.
	doJSON(t, http.MethodDelete, ts.URL+"/api/expenses/"+created.ID+"?confirm=true", tokenB, nil)
	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/expenses", tokenA, nil)
	listed = nil
	_ = json.Unmarshal(raw, &listed)
	if len(listed) != 1 {
		t.Fatalf("cross-user delete removed the record")
	}
}

func TestExpenseStreamDeliversSnapshot(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	token := signUp(t, ts.URL, "a@example.com")
	doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
		"amount": "10", "description": "coffee",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/expenses/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if data == "" {
		t.Fatalf("no snapshot event received")
	}
	var snapshot []expensePayload
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].Description != "coffee" {
		t.Fatalf("snapshot = %+v", snapshot)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	ts, _ := newTestServer(t, Options{RateLimitPerMinute: 3})
	token := signUp(t, ts.URL, "a@example.com")

	var limited bool
	for i := 0; i < 5; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/expenses", token, map[string]string{
			"amount": "1", "description": "spam",
		})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("mutating requests never rate limited")
	}

	// Reads stay unthrottled.
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/expenses", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read after limit status = %d", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || string(raw) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, raw)
	}
	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/readyz", "", nil)
	if resp.StatusCode != http.StatusOK || string(raw) != "ready" {
		t.Fatalf("readyz = %d %q", resp.StatusCode, raw)
	}
}
