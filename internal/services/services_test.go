package services

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"finboard/internal/ai"
	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/store"
	"finboard/internal/store/memory"
)

var demoNow = time.Date(2023, 12, 20, 12, 0, 0, 0, time.UTC)

type fakeAdvisor struct {
	categorized int
	receipt     ai.ReceiptAnalysis
	receiptErr  error
	receiptMIME string
	insights    []ai.InsightSuggestion
	lastReq     ai.InsightRequest
}

func (f *fakeAdvisor) Categorize(_ context.Context, _, _ string, _ core.Money) ai.Categorization {
	f.categorized++
	return ai.Categorization{Category: "Transportation", Subcategory: "Rideshare", Confidence: 0.9}
}

func (f *fakeAdvisor) AnalyzeReceipt(_ context.Context, _ []byte, mimeType string) (ai.ReceiptAnalysis, error) {
	f.receiptMIME = mimeType
	return f.receipt, f.receiptErr
}

func (f *fakeAdvisor) GenerateInsights(_ context.Context, req ai.InsightRequest) []ai.InsightSuggestion {
	f.lastReq = req
	return f.insights
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, ev amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	store    *memory.Store
	advisor  *fakeAdvisor
	events   *recordingPublisher
	txs      *TransactionService
	receipts *ReceiptService
	insights *InsightService
	analysis *AnalysisService
	budgets  *BudgetService
	checking core.Account
	credit   core.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := memory.NewSeeded(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	f := &fixture{store: s, advisor: &fakeAdvisor{}, events: &recordingPublisher{}}
	f.txs = NewTransactionService(s, s, f.advisor, f.events, nil)
	f.txs.now = func() time.Time { return demoNow }
	f.receipts = NewReceiptService(f.advisor, s, f.txs, nil)
	f.insights = NewInsightService(s, f.advisor, nil)
	f.insights.now = func() time.Time { return demoNow }
	f.analysis = NewAnalysisService(s)
	f.analysis.now = func() time.Time { return demoNow }
	f.budgets = NewBudgetService(s)

	accounts, _ := s.ListAccountsByUser(ctx, store.DemoUserID)
	f.checking, f.credit = accounts[0], accounts[1]
	return f
}

func TestCreateTransactionCategorizesWhenCategoryMissing(t *testing.T) {
	f := newFixture(t)
	tx, err := f.txs.Create(context.Background(), TransactionInput{
		AccountID: f.checking.ID, Amount: core.Money{Cents: -2350}, Description: "Uber ride home", Merchant: "Uber",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Category != "Transportation" || tx.Subcategory != "Rideshare" || !tx.AICategorized {
		t.Fatalf("categorization not applied: %+v", tx)
	}
	if !tx.Date.Equal(demoNow) {
		t.Fatalf("date should default to now, got %v", tx.Date)
	}
	if len(f.events.events) != 1 || f.events.events[0].TransactionID != tx.ID || f.events.events[0].UserID != store.DemoUserID {
		t.Fatalf("unexpected events: %+v", f.events.events)
	}
}

func TestCreateTransactionKeepsGivenCategory(t *testing.T) {
	f := newFixture(t)
	tx, err := f.txs.Create(context.Background(), TransactionInput{
		AccountID: f.checking.ID, Amount: core.Money{Cents: -1000}, Description: "Cinema", Category: "Entertainment",
		Date: time.Date(2023, 12, 18, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.advisor.categorized != 0 || tx.AICategorized || tx.Category != "Entertainment" {
		t.Fatalf("categorizer should not run: %+v calls=%d", tx, f.advisor.categorized)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		in   TransactionInput
	}{
		{"missing account", TransactionInput{Amount: core.Money{Cents: -1}, Description: "x"}},
		{"missing description", TransactionInput{AccountID: f.checking.ID, Amount: core.Money{Cents: -1}}},
		{"zero amount", TransactionInput{AccountID: f.checking.ID, Description: "x"}},
		{"unknown account", TransactionInput{AccountID: "nope", Amount: core.Money{Cents: -1}, Description: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.txs.Create(context.Background(), tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if len(f.events.events) != 0 {
		t.Fatalf("no event expected for rejected input")
	}
}

func TestCreateTransactionSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	if _, err := f.txs.Create(context.Background(), TransactionInput{
		AccountID: f.checking.ID, Amount: core.Money{Cents: -100}, Description: "x", Category: "Other",
	}); err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ptr := func(s string, end bool) *time.Time {
		d, err := ParseDateBound(s, end)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		return &d
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{"all newest first", TransactionFilter{}, []string{"Starbucks Coffee", "Shell Gas Station", "Paycheck Deposit", "Amazon Purchase"}},
		{"category", TransactionFilter{Category: "Shopping"}, []string{"Amazon Purchase"}},
		{"category is exact", TransactionFilter{Category: "shopping"}, nil},
		{"account", TransactionFilter{AccountID: f.credit.ID}, []string{"Shell Gas Station", "Amazon Purchase"}},
		{"start inclusive", TransactionFilter{Start: ptr("2023-12-14", false)}, []string{"Starbucks Coffee", "Shell Gas Station"}},
		{"date-only end covers the day", TransactionFilter{End: ptr("2023-12-13", true)}, []string{"Paycheck Deposit", "Amazon Purchase"}},
		{"range", TransactionFilter{Start: ptr("2023-12-13", false), End: ptr("2023-12-14", true)}, []string{"Shell Gas Station", "Paycheck Deposit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.txs.List(ctx, store.DemoUserID, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tt.want))
			}
			for i, d := range tt.want {
				if got[i].Description != d {
					t.Errorf("[%d] = %q, want %q", i, got[i].Description, d)
				}
			}
		})
	}
}

func TestParseDateBound(t *testing.T) {
	if _, err := ParseDateBound("12/13/2023", false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, err := ParseDateBound("2023-12-13T10:00:00+01:00", true)
	if err != nil || got.Hour() != 10 {
		t.Fatalf("rfc3339 bound: %v %v", got, err)
	}
}

func TestRecategorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txs, _ := f.txs.List(ctx, store.DemoUserID, TransactionFilter{Category: "Shopping"})

	got, err := f.txs.Recategorize(ctx, txs[0].ID)
	if err != nil || got.Category != "Transportation" || !got.AICategorized {
		t.Fatalf("recategorize: %+v %v", got, err)
	}
	if _, err := f.txs.Recategorize(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalyzeReceiptBooksOnChecking(t *testing.T) {
	f := newFixture(t)
	f.advisor.receipt = ai.ReceiptAnalysis{Merchant: "Whole Foods", Amount: 23.47, Date: "2023-12-19",
		Category: "Food & Dining", Subcategory: "Groceries", Description: "Groceries"}

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG fake"))
	res, err := f.receipts.Analyze(context.Background(), store.DemoUserID, img)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if f.advisor.receiptMIME != "image/png" {
		t.Errorf("mime = %q", f.advisor.receiptMIME)
	}
	tx := res.Transaction
	if tx == nil {
		t.Fatal("expected a transaction")
	}
	if tx.AccountID != f.checking.ID || tx.Amount.Cents != -2347 || tx.Description != "Whole Foods - Receipt Upload" ||
		!tx.AICategorized || tx.IsIncome || tx.Date.Format(time.DateOnly) != "2023-12-19" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if _, ok := tx.Metadata["receiptAnalysis"]; !ok {
		t.Fatalf("analysis not kept in metadata: %+v", tx.Metadata)
	}
	if len(f.events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.events.events))
	}
}

func TestAnalyzeReceiptWithoutAccounts(t *testing.T) {
	f := newFixture(t)
	f.advisor.receipt = ai.ReceiptAnalysis{Merchant: "Shop", Amount: 5, Date: "2023-12-19", Category: "Shopping"}

	raw := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0})
	res, err := f.receipts.Analyze(context.Background(), "nobody", raw)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Transaction != nil || res.Analysis.Merchant != "Shop" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.advisor.receiptMIME != "image/jpeg" {
		t.Errorf("sniffed mime = %q", f.advisor.receiptMIME)
	}
}

func TestAnalyzeReceiptErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.receipts.Analyze(context.Background(), store.DemoUserID, "%%%not-base64"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.receipts.Analyze(context.Background(), store.DemoUserID, "data:image/png,plain"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-base64 data URL, got %v", err)
	}
	blankImg := base64.StdEncoding.EncodeToString([]byte("img"))
	if _, err := f.receipts.Analyze(context.Background(), "  ", blankImg); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank user, got %v", err)
	}

	f.advisor.receiptErr = ai.ErrNotConfigured
	img := base64.StdEncoding.EncodeToString([]byte("img"))
	if _, err := f.receipts.Analyze(context.Background(), store.DemoUserID, img); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected analyzer error, got %v", err)
	}
}

func TestGenerateInsightsStoresSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := 150.0
	f.advisor.insights = []ai.InsightSuggestion{
		{Type: ai.InsightWarning, Title: "Dining", Description: "Over budget", Category: "Food & Dining", Amount: &amount, Priority: core.PriorityHigh},
		{Type: ai.InsightTip, Title: "Save", Description: "Meal plan", Priority: core.PriorityLow},
	}
	// outside the 30 day window
	f.store.CreateTransaction(ctx, core.Transaction{AccountID: f.checking.ID, Amount: core.Money{Cents: -100},
		Description: "old", Category: "Other", Date: demoNow.AddDate(0, -3, 0)})

	got, err := f.insights.Generate(ctx, store.DemoUserID)
	if err != nil || len(got) != 2 {
		t.Fatalf("generate: %v %v", got, err)
	}
	if f.advisor.lastReq.User.FirstName != "John" || len(f.advisor.lastReq.Transactions) != 4 || len(f.advisor.lastReq.Budgets) != 4 {
		t.Fatalf("unexpected request: user=%+v txs=%d budgets=%d", f.advisor.lastReq.User,
			len(f.advisor.lastReq.Transactions), len(f.advisor.lastReq.Budgets))
	}

	stored, _ := f.insights.List(ctx, store.DemoUserID)
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored insights, got %d", len(stored))
	}
	var warning core.Insight
	for _, in := range stored {
		if in.IsRead {
			t.Fatalf("new insights must be unread: %+v", in)
		}
		if in.Type == "warning" {
			warning = in
		}
	}
	if warning.Content != "Over budget" || warning.Metadata["category"] != "Food & Dining" || warning.Metadata["amount"] != 150.0 {
		t.Fatalf("unexpected stored warning: %+v", warning)
	}

	read, err := f.insights.MarkRead(ctx, warning.ID)
	if err != nil || !read.IsRead {
		t.Fatalf("mark read: %+v %v", read, err)
	}
	if _, err := f.insights.MarkRead(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateInsightsEmpty(t *testing.T) {
	f := newFixture(t)
	got, err := f.insights.Generate(context.Background(), "nobody")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no insights, got %v %v", got, err)
	}
	if f.advisor.lastReq.User.ID != "nobody" {
		t.Fatalf("unknown user should still be passed by id: %+v", f.advisor.lastReq.User)
	}
}

func TestBudgetAnalysis(t *testing.T) {
	f := newFixture(t)
	got, err := f.analysis.Budgets(context.Background(), store.DemoUserID)
	if err != nil || len(got) != 4 {
		t.Fatalf("budgets: %v %v", got, err)
	}
	want := map[string]int64{"Food & Dining": 485, "Transportation": 4230, "Shopping": 8999, "Entertainment": 0}
	for _, a := range got {
		if a.SpentMoney().Cents != want[a.Category] || a.Status != core.StatusGood {
			t.Errorf("%s: spent=%d status=%s", a.Category, a.SpentMoney().Cents, a.Status)
		}
	}
}

func TestTrends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr, err := f.analysis.Trends(ctx, store.DemoUserID, core.DefaultTrendDays)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if tr.TotalSpending.Cents != 13714 || len(tr.DailySpending) != 3 || tr.CategorySpending["Income"].Cents != 0 {
		t.Fatalf("unexpected trends: %+v", tr)
	}

	week, _ := f.analysis.Trends(ctx, store.DemoUserID, 7)
	if week.TotalSpending.Cents != 485+4230 {
		t.Fatalf("7 day window total = %d", week.TotalSpending.Cents)
	}

	if _, err := f.analysis.Trends(ctx, store.DemoUserID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.analysis.Trends(ctx, store.DemoUserID, 10_000); err != nil {
		t.Fatalf("large windows are clamped, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.store.CreateInsight(ctx, core.Insight{UserID: store.DemoUserID, Type: "tip", Title: "t", Priority: core.PriorityLow})
	}

	d, err := f.analysis.Dashboard(ctx, store.DemoUserID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Accounts) != 3 || len(d.Transactions) != 4 || len(d.Budgets) != 4 || len(d.Goals) != 2 || len(d.Investments) != 2 {
		t.Fatalf("unexpected collections: %+v", d)
	}
	if len(d.Insights) != DashboardInsights {
		t.Fatalf("expected %d insights, got %d", DashboardInsights, len(d.Insights))
	}
	want := core.Summary{TotalBalance: 12847.52, MonthlySpending: 137.14, TotalInvestments: 25742.31, CreditScore: 742}
	if d.Summary != want {
		t.Fatalf("summary = %+v, want %+v", d.Summary, want)
	}
}

func TestBudgetCreateAndDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.budgets.Create(ctx, core.Budget{UserID: store.DemoUserID, Category: "Travel", Amount: core.Money{Cents: 100000}})
	if err != nil || b.Period != core.Monthly || !b.IsActive {
		t.Fatalf("create: %+v %v", b, err)
	}
	if _, err := f.budgets.Create(ctx, core.Budget{UserID: store.DemoUserID, Amount: core.Money{Cents: 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.budgets.Create(ctx, core.Budget{Category: "Travel", Amount: core.Money{Cents: 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing user should be rejected, got %v", err)
	}

	if err := f.budgets.Deactivate(ctx, b.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	analysis, _ := f.analysis.Budgets(ctx, store.DemoUserID)
	if len(analysis) != 4 {
		t.Fatalf("deactivated budget still analyzed: %d", len(analysis))
	}
	if err := f.budgets.Deactivate(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
