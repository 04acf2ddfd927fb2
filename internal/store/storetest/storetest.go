// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/store"
)

// Run exercises a fresh, empty store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("seed demo", func(t *testing.T) { testSeed(t, newStore(t)) })
	t.Run("unknown ids", func(t *testing.T) { testUnknown(t, newStore(t)) })
	t.Run("transactions by user", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("budgets active only", func(t *testing.T) { testBudgets(t, newStore(t)) })
	t.Run("insights", func(t *testing.T) { testInsights(t, newStore(t)) })
	t.Run("goals and investments", func(t *testing.T) { testGoalsInvestments(t, newStore(t)) })
}

func testSeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := store.SeedDemo(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// second call is a no-op
	if err := store.SeedDemo(ctx, s); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	u, ok, err := s.GetUser(ctx, store.DemoUserID)
	if err != nil || !ok || u.FullName() != "John Doe" || u.Email != "test@example.com" {
		t.Fatalf("demo user: %+v ok=%v err=%v", u, ok, err)
	}
	if byName, ok, _ := s.GetUserByUsername(ctx, "testuser"); !ok || byName.ID != u.ID {
		t.Fatalf("lookup by username failed")
	}

	accounts, _ := s.ListAccountsByUser(ctx, u.ID)
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	var total int64
	for _, a := range accounts {
		total += a.Balance.Cents
	}
	if total != 1284752 {
		t.Fatalf("total balance cents=%d", total)
	}

	txs, _ := s.ListTransactionsByUser(ctx, u.ID)
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions, got %d", len(txs))
	}
	budgets, _ := s.ListBudgetsByUser(ctx, u.ID)
	if len(budgets) != 4 || budgets[0].Category != "Food & Dining" || budgets[3].Category != "Entertainment" {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}
	goals, _ := s.ListGoalsByUser(ctx, u.ID)
	invs, _ := s.ListInvestmentsByUser(ctx, u.ID)
	if len(goals) != 2 || len(invs) != 2 {
		t.Fatalf("goals=%d investments=%d", len(goals), len(invs))
	}
	recent, _ := s.ListRecentTransactions(ctx, u.ID, 2)
	if len(recent) != 2 || recent[0].Description != "Starbucks Coffee" || recent[1].Description != "Shell Gas Station" {
		t.Fatalf("unexpected recent: %+v", recent)
	}
}

func testUnknown(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, ok, err := s.GetUser(ctx, "nope"); ok || err != nil {
		t.Fatalf("GetUser unknown: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.GetAccount(ctx, "nope"); ok || err != nil {
		t.Fatalf("GetAccount unknown: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.GetTransaction(ctx, "nope"); ok || err != nil {
		t.Fatalf("GetTransaction unknown: ok=%v err=%v", ok, err)
	}
	if txs, err := s.ListTransactionsByUser(ctx, "nope"); err != nil || len(txs) != 0 {
		t.Fatalf("ListTransactionsByUser unknown: %v %v", txs, err)
	}
	if bs, err := s.ListBudgetsByUser(ctx, "nope"); err != nil || len(bs) != 0 {
		t.Fatalf("ListBudgetsByUser unknown: %v %v", bs, err)
	}
	if _, ok, err := s.MarkInsightRead(ctx, "nope"); ok || err != nil {
		t.Fatalf("MarkInsightRead unknown: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.UpdateBudget(ctx, "nope", store.BudgetUpdate{IsActive: store.Ptr(false)}); ok || err != nil {
		t.Fatalf("UpdateBudget unknown: ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.UpdateAccountBalance(ctx, "nope", core.Money{Cents: 1}); ok || err != nil {
		t.Fatalf("UpdateAccountBalance unknown: ok=%v err=%v", ok, err)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, _ := s.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com"})
	bob, _ := s.CreateUser(ctx, core.User{Username: "bob", Email: "b@example.com"})
	a1, _ := s.CreateAccount(ctx, core.Account{UserID: alice.ID, Name: "A1", Type: "checking", Institution: "X"})
	a2, _ := s.CreateAccount(ctx, core.Account{UserID: alice.ID, Name: "A2", Type: "credit", Institution: "X"})
	b1, _ := s.CreateAccount(ctx, core.Account{UserID: bob.ID, Name: "B1", Type: "checking", Institution: "X"})

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	mk := func(acc string, d int, meta map[string]any) core.Transaction {
		tx, err := s.CreateTransaction(ctx, core.Transaction{
			AccountID: acc, Amount: core.Money{Cents: -100 * int64(d)}, Description: "t",
			Category: "Food", Date: base.AddDate(0, 0, d), Metadata: meta,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return tx
	}
	first := mk(a1.ID, 1, map[string]any{"source": "test"})
	mk(a2.ID, 3, nil)
	mk(b1.ID, 2, nil)

	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt to be assigned")
	}
	got, ok, _ := s.GetTransaction(ctx, first.ID)
	if !ok || got.Amount.Cents != -100 || got.Metadata["source"] != "test" || !got.Date.Equal(base.AddDate(0, 0, 1)) {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	txs, _ := s.ListTransactionsByUser(ctx, alice.ID)
	if len(txs) != 2 {
		t.Fatalf("alice should see 2 transactions, got %d", len(txs))
	}
	byAcc, _ := s.ListTransactionsByAccount(ctx, a2.ID)
	if len(byAcc) != 1 {
		t.Fatalf("expected 1 transaction on a2, got %d", len(byAcc))
	}
	recent, _ := s.ListRecentTransactions(ctx, alice.ID, 10)
	if len(recent) != 2 || !recent[0].Date.After(recent[1].Date) {
		t.Fatalf("recent should be newest first: %+v", recent)
	}

	updated, ok, err := s.UpdateTransaction(ctx, first.ID, store.TransactionUpdate{
		Category: store.Ptr("Groceries"), AICategorized: store.Ptr(true),
	})
	if err != nil || !ok || updated.Category != "Groceries" || !updated.AICategorized || updated.Description != "t" {
		t.Fatalf("update: %+v ok=%v err=%v", updated, ok, err)
	}

	acc, ok, _ := s.UpdateAccountBalance(ctx, a1.ID, core.Money{Cents: 4200})
	if !ok || acc.Balance.Cents != 4200 {
		t.Fatalf("balance update: %+v", acc)
	}
}

func testBudgets(t *testing.T, s store.Store) {
	ctx := context.Background()
	var ids []string
	for _, c := range []string{"Shopping", "Food", "Travel"} {
		b, err := s.CreateBudget(ctx, core.Budget{UserID: "u1", Category: c, Amount: core.Money{Cents: 1000}, Period: core.Monthly, IsActive: true})
		if err != nil {
			t.Fatalf("create budget: %v", err)
		}
		ids = append(ids, b.ID)
	}
	if _, ok, err := s.UpdateBudget(ctx, ids[1], store.BudgetUpdate{IsActive: store.Ptr(false)}); !ok || err != nil {
		t.Fatalf("deactivate: ok=%v err=%v", ok, err)
	}
	got, _ := s.ListBudgetsByUser(ctx, "u1")
	if len(got) != 2 || got[0].Category != "Shopping" || got[1].Category != "Travel" {
		t.Fatalf("expected active budgets in creation order, got %+v", got)
	}
}

func testInsights(t *testing.T, s store.Store) {
	ctx := context.Background()
	in, err := s.CreateInsight(ctx, core.Insight{UserID: "u1", Type: "tip", Title: "Save", Content: "c", Priority: core.PriorityLow,
		Metadata: map[string]any{"category": "Food"}})
	if err != nil || in.ID == "" || in.IsRead {
		t.Fatalf("create insight: %+v %v", in, err)
	}
	read, ok, err := s.MarkInsightRead(ctx, in.ID)
	if err != nil || !ok || !read.IsRead {
		t.Fatalf("mark read: %+v ok=%v err=%v", read, ok, err)
	}
	list, _ := s.ListInsightsByUser(ctx, "u1")
	if len(list) != 1 || !list[0].IsRead || list[0].Metadata["category"] != "Food" {
		t.Fatalf("unexpected insights: %+v", list)
	}
}

func testGoalsInvestments(t *testing.T, s store.Store) {
	ctx := context.Background()
	g, _ := s.CreateGoal(ctx, core.Goal{UserID: "u1", Name: "Car", TargetAmount: core.Money{Cents: 100000}, Category: "savings", IsActive: true})
	if _, ok, _ := s.UpdateGoal(ctx, g.ID, store.GoalUpdate{CurrentAmount: &core.Money{Cents: 5000}}); !ok {
		t.Fatalf("update goal")
	}
	goals, _ := s.ListGoalsByUser(ctx, "u1")
	if len(goals) != 1 || goals[0].CurrentAmount.Cents != 5000 || goals[0].TargetDate != nil {
		t.Fatalf("unexpected goals: %+v", goals)
	}
	s.UpdateGoal(ctx, g.ID, store.GoalUpdate{IsActive: store.Ptr(false)})
	if goals, _ := s.ListGoalsByUser(ctx, "u1"); len(goals) != 0 {
		t.Fatalf("inactive goal listed")
	}

	inv, _ := s.CreateInvestment(ctx, core.Investment{UserID: "u1", Symbol: "VTI", Name: "Total Market", Quantity: "2.5000",
		CurrentPrice: core.Money{Cents: 25000}, PurchasePrice: core.Money{Cents: 20000}, Type: "etf", PurchaseDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	up, ok, _ := s.UpdateInvestment(ctx, inv.ID, store.InvestmentUpdate{CurrentPrice: &core.Money{Cents: 26000}})
	if !ok || up.CurrentPrice.Cents != 26000 || up.Quantity != "2.5000" {
		t.Fatalf("update investment: %+v", up)
	}
}
