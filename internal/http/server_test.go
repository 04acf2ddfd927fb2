package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finboard/internal/ai"
	"finboard/internal/core"
	"finboard/internal/services"
	"finboard/internal/store"
	"finboard/internal/store/memory"
)

type fakeAdvisor struct {
	receipt      ai.ReceiptAnalysis
	receiptErr   error
	receiptCalls int
	insights     []ai.InsightSuggestion
}

func (f *fakeAdvisor) Categorize(_ context.Context, _, _ string, _ core.Money) ai.Categorization {
	return ai.Categorization{Category: "Food & Dining", Subcategory: "Coffee", Confidence: 0.8}
}

func (f *fakeAdvisor) AnalyzeReceipt(context.Context, []byte, string) (ai.ReceiptAnalysis, error) {
	f.receiptCalls++
	return f.receipt, f.receiptErr
}

func (f *fakeAdvisor) GenerateInsights(context.Context, ai.InsightRequest) []ai.InsightSuggestion {
	return f.insights
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type testServer struct {
	srv     *Server
	store   *memory.Store
	advisor *fakeAdvisor
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	s, err := memory.NewSeeded(context.Background())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	advisor := &fakeAdvisor{}
	txs := services.NewTransactionService(s, s, advisor, nil, nil)
	svc := Services{
		Transactions: txs,
		Receipts:     services.NewReceiptService(advisor, s, txs, nil),
		Insights:     services.NewInsightService(s, advisor, nil),
		Analysis:     services.NewAnalysisService(s),
		Budgets:      services.NewBudgetService(s),
	}
	if opts.Ready == nil {
		opts.Ready = s
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, store: s, advisor: advisor}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func (ts *testServer) checkingID(t *testing.T) string {
	t.Helper()
	accounts, _ := ts.store.ListAccountsByUser(context.Background(), store.DemoUserID)
	return accounts[0].ID
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing tracing or security headers", path)
		}
	}

	down := newTestServer(t, Options{Ready: failingPinger{}})
	rr := down.do(t, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the store fails, got %d", rr.Code)
	}
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(t, http.MethodGet, "/api/dashboard/"+store.DemoUserID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	d := decode[services.Dashboard](t, rr)
	if len(d.Accounts) != 3 || len(d.Transactions) != 4 || len(d.Budgets) != 4 || len(d.Goals) != 2 || len(d.Investments) != 2 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}

	rr = ts.do(t, http.MethodGet, "/api/dashboard/nobody", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unknown user should get an empty dashboard, got %d", rr.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	ts := newTestServer(t, Options{})
	checking := ts.checkingID(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantMsg: "request body is empty"},
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest, wantMsg: "malformed JSON"},
		{name: "missing fields", body: `{"accountId":"` + checking + `"}`, wantStatus: http.StatusBadRequest, wantMsg: "amount is required"},
		{name: "bad amount", body: `{"accountId":"` + checking + `","amount":"abc","description":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "bad date", body: `{"accountId":"` + checking + `","amount":"-1.00","description":"x","date":"yesterday"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown account", body: `{"accountId":"nope","amount":"-1.00","description":"x","category":"Other"}`, wantStatus: http.StatusBadRequest},
		{name: "explicit category", body: `{"accountId":"` + checking + `","amount":"-12.50","description":"Lunch","category":"Food & Dining","date":"2024-03-01"}`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest {
				msg := decode[ErrorResponse](t, rr).Message
				if !strings.HasPrefix(msg, "Failed to create transaction") || !strings.Contains(msg, tt.wantMsg) {
					t.Errorf("unexpected message %q", msg)
				}
			}
		})
	}

	rr := ts.do(t, http.MethodPost, "/api/transactions", `{"accountId":"`+checking+`","amount":-4.50,"description":"Blue Bottle","merchant":"Blue Bottle"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[core.Transaction](t, rr)
	if tx.Category != "Food & Dining" || tx.Subcategory != "Coffee" || !tx.AICategorized || tx.Amount.Cents != -450 {
		t.Fatalf("expected categorized transaction, got %+v", tx)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	ts := newTestServer(t, Options{})
	base := "/api/transactions/" + store.DemoUserID

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantFirst string
		wantCode  int
	}{
		{name: "all newest first", query: "", wantCount: 4, wantFirst: "Starbucks Coffee", wantCode: http.StatusOK},
		{name: "by category", query: "?category=Transportation", wantCount: 1, wantFirst: "Shell Gas Station", wantCode: http.StatusOK},
		{name: "end date covers the whole day", query: "?startDate=2023-12-13&endDate=2023-12-14", wantCount: 2, wantFirst: "Shell Gas Station", wantCode: http.StatusOK},
		{name: "bad start date", query: "?startDate=13/12/2023", wantCode: http.StatusBadRequest},
		{name: "inverted range", query: "?startDate=2023-12-14&endDate=2023-12-13", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodGet, base+tt.query, "")
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			txs := decode[[]core.Transaction](t, rr)
			if len(txs) != tt.wantCount {
				t.Fatalf("got %d transactions, want %d", len(txs), tt.wantCount)
			}
			if txs[0].Description != tt.wantFirst {
				t.Errorf("first = %q, want %q", txs[0].Description, tt.wantFirst)
			}
		})
	}
}

func TestRecategorize(t *testing.T) {
	ts := newTestServer(t, Options{})
	txs, _ := ts.store.ListRecentTransactions(context.Background(), store.DemoUserID, 1)

	rr := ts.do(t, http.MethodPost, "/api/transactions/"+txs[0].ID+"/categorize", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr); !got.AICategorized || got.Subcategory != "Coffee" {
		t.Fatalf("unexpected transaction: %+v", got)
	}

	rr = ts.do(t, http.MethodPost, "/api/transactions/missing/categorize", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAnalyzeReceipt(t *testing.T) {
	ts := newTestServer(t, Options{})
	image := base64.StdEncoding.EncodeToString([]byte("\xff\xd8\xff\xe0fake-jpeg"))

	rr := ts.do(t, http.MethodPost, "/api/receipts/analyze", `{"userId":"testuser"}`)
	if rr.Code != http.StatusBadRequest || decode[ErrorResponse](t, rr).Message != "Image and userId are required" {
		t.Fatalf("missing image: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rejected := []struct {
		name string
		body string
		want string
	}{
		{"blank user", `{"userId":"   ","image":"` + image + `"}`, "Image and userId are required"},
		{"blank image", `{"userId":"testuser","image":" "}`, "Image and userId are required"},
		{"malformed json", `{"userId":`, "Failed to analyze receipt: malformed JSON"},
		{"oversize body", `{"userId":"testuser","image":"` + strings.Repeat("A", maxReceiptBody) + `"}`, "Failed to analyze receipt: request body exceeds"},
	}
	for _, tc := range rejected {
		rr := ts.do(t, http.MethodPost, "/api/receipts/analyze", tc.body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s", tc.name, rr.Code, rr.Body.String())
		}
		if msg := decode[ErrorResponse](t, rr).Message; !strings.HasPrefix(msg, tc.want) {
			t.Fatalf("%s: message=%q, want prefix %q", tc.name, msg, tc.want)
		}
	}
	if ts.advisor.receiptCalls != 0 {
		t.Fatalf("rejected requests reached the analyzer %d times", ts.advisor.receiptCalls)
	}

	ts.advisor.receiptErr = errors.New("model unavailable")
	rr = ts.do(t, http.MethodPost, "/api/receipts/analyze", `{"userId":"testuser","image":"`+image+`"}`)
	if rr.Code != http.StatusInternalServerError || decode[ErrorResponse](t, rr).Message != "Failed to analyze receipt" {
		t.Fatalf("analysis failure: status=%d body=%s", rr.Code, rr.Body.String())
	}

	ts.advisor.receiptErr = nil
	ts.advisor.receipt = ai.ReceiptAnalysis{Merchant: "Whole Foods", Amount: 23.45, Date: "2024-02-10", Category: "Food & Dining"}
	rr = ts.do(t, http.MethodPost, "/api/receipts/analyze", `{"userId":"testuser","image":"data:image/jpeg;base64,`+image+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	result := decode[services.ReceiptResult](t, rr)
	if result.Transaction == nil || result.Transaction.Amount.Cents != -2345 || result.Transaction.Description != "Whole Foods - Receipt Upload" {
		t.Fatalf("unexpected receipt result: %+v", result)
	}
}

func TestBudgetsLifecycle(t *testing.T) {
	ts := newTestServer(t, Options{})

	rr := ts.do(t, http.MethodPost, "/api/budgets", `{"userId":"testuser","category":"Travel","amount":"250.00","period":"weekly"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported period, got %d", rr.Code)
	}

	rr = ts.do(t, http.MethodPost, "/api/budgets", `{"userId":"testuser","category":"Travel","amount":"250.00"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[core.Budget](t, rr)
	if created.Period != core.Monthly || !created.IsActive {
		t.Fatalf("unexpected budget: %+v", created)
	}

	rr = ts.do(t, http.MethodGet, "/api/budgets/testuser/analysis", "")
	analysis := decode[[]core.BudgetAnalysis](t, rr)
	if len(analysis) != 5 || analysis[4].Category != "Travel" || analysis[4].Status != core.StatusGood {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	if rr := ts.do(t, http.MethodDelete, "/api/budgets/"+created.ID, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := ts.do(t, http.MethodDelete, "/api/budgets/unknown", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete unknown status=%d", rr.Code)
	}
	rr = ts.do(t, http.MethodGet, "/api/budgets/testuser/analysis", "")
	if got := decode[[]core.BudgetAnalysis](t, rr); len(got) != 4 {
		t.Fatalf("deleted budget still analyzed: %d", len(got))
	}
}

func TestInsights(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.advisor.insights = []ai.InsightSuggestion{
		{Type: ai.InsightWarning, Title: "Dining is up", Description: "You spent more on food.", Category: "Food & Dining", Priority: core.PriorityHigh},
	}

	rr := ts.do(t, http.MethodPost, "/api/insights/generate/testuser", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[[]ai.InsightSuggestion](t, rr); len(got) != 1 {
		t.Fatalf("unexpected suggestions: %+v", got)
	}

	stored := decode[[]core.Insight](t, ts.do(t, http.MethodGet, "/api/insights/testuser", ""))
	if len(stored) != 1 || stored[0].IsRead {
		t.Fatalf("unexpected stored insights: %+v", stored)
	}

	rr = ts.do(t, http.MethodPatch, "/api/insights/"+stored[0].ID+"/read", "")
	if rr.Code != http.StatusOK || !decode[core.Insight](t, rr).IsRead {
		t.Fatalf("mark read: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := ts.do(t, http.MethodPatch, "/api/insights/nope/read", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTrends(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(t, http.MethodPost, "/api/transactions", `{"accountId":"`+ts.checkingID(t)+`","amount":"-20.00","description":"Cinema","category":"Entertainment"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create: status=%d", rr.Code)
	}

	tests := []struct {
		query    string
		wantCode int
	}{
		{"", http.StatusOK},
		{"?days=7", http.StatusOK},
		{"?days=10000", http.StatusOK},
		{"?days=0", http.StatusBadRequest},
		{"?days=-3", http.StatusBadRequest},
		{"?days=week", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := ts.do(t, http.MethodGet, "/api/spending/trends/testuser"+tt.query, "")
		if rr.Code != tt.wantCode {
			t.Fatalf("%q: status=%d want %d", tt.query, rr.Code, tt.wantCode)
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		view := decode[core.TrendsView](t, rr)
		if view.CategorySpending["Entertainment"] != 20 || view.TotalSpending < 20 {
			t.Errorf("%q: unexpected trends %+v", tt.query, view)
		}
	}
}

func TestRateLimitAppliesToMutatingRequests(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 2})
	for i := 0; i < 2; i++ {
		if rr := ts.do(t, http.MethodPost, "/api/budgets", `{}`); rr.Code != http.StatusBadRequest {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := ts.do(t, http.MethodPost, "/api/budgets", `{}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := ts.do(t, http.MethodGet, "/api/dashboard/testuser", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rr.Code)
	}
}

func TestProbeRequestsAreRejected(t *testing.T) {
	ts := newTestServer(t, Options{})
	rr := ts.do(t, http.MethodGet, "/api/transactions/..%2f.env", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
