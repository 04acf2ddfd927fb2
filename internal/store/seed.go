package store

import (
	"context"
	"fmt"
	"time"

	"finboard/internal/core"
)

// DemoUserID is the fixed identifier of the seeded demo user.
const DemoUserID = "testuser"

func mustMoney(s string) core.Money {
	m, err := core.ParseMoney(s)
	if err != nil {
		panic(fmt.Sprintf("bad seed amount %q: %v", s, err))
	}
	return m
}

func date(s string) time.Time {
	t, err := time.Parse(core.DayKeyLayout, s)
	if err != nil {
		panic(fmt.Sprintf("bad seed date %q: %v", s, err))
	}
	return t
}

// SeedDemo loads the demo user with accounts, transactions, budgets, goals and
// investments. It does nothing when the demo user already exists.
func SeedDemo(ctx context.Context, s Store) error {
	if _, ok, err := s.GetUser(ctx, DemoUserID); err != nil {
		return fmt.Errorf("check demo user: %w", err)
	} else if ok {
		return nil
	}

	if _, err := s.CreateUser(ctx, core.User{
		ID:        DemoUserID,
		Username:  "testuser",
		Email:     "test@example.com",
		FirstName: "John",
		LastName:  "Doe",
	}); err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	accounts := []core.Account{
		{Name: "Chase Checking", Type: "checking", Balance: mustMoney("8247.52"), AccountNumber: "****1234"},
		{Name: "Credit Card", Type: "credit", Balance: mustMoney("-1247.30"), AccountNumber: "****5678"},
		{Name: "Savings Account", Type: "savings", Balance: mustMoney("5847.30"), AccountNumber: "****9012"},
	}
	for i := range accounts {
		accounts[i].UserID = DemoUserID
		accounts[i].Institution = "Chase Bank"
		accounts[i].IsActive = true
		created, err := s.CreateAccount(ctx, accounts[i])
		if err != nil {
			return fmt.Errorf("create demo account %s: %w", accounts[i].Name, err)
		}
		accounts[i] = created
	}
	checking, credit := accounts[0].ID, accounts[1].ID

	txs := []core.Transaction{
		{AccountID: checking, Amount: mustMoney("-4.85"), Description: "Starbucks Coffee", Merchant: "Starbucks",
			Category: "Food & Dining", Subcategory: "Coffee", Date: date("2023-12-15"), AICategorized: true},
		{AccountID: credit, Amount: mustMoney("-42.30"), Description: "Shell Gas Station", Merchant: "Shell",
			Category: "Transportation", Subcategory: "Gas", Date: date("2023-12-14"), AICategorized: true},
		{AccountID: checking, Amount: mustMoney("3250.00"), Description: "Paycheck Deposit", Merchant: "Acme Corp",
			Category: "Income", Subcategory: "Salary", Date: date("2023-12-13"), IsIncome: true},
		{AccountID: credit, Amount: mustMoney("-89.99"), Description: "Amazon Purchase", Merchant: "Amazon",
			Category: "Shopping", Subcategory: "Online", Date: date("2023-12-12"), AICategorized: true},
	}
	for _, t := range txs {
		if _, err := s.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("create demo transaction %s: %w", t.Description, err)
		}
	}

	for _, b := range []struct{ category, amount string }{
		{"Food & Dining", "600.00"},
		{"Transportation", "700.00"},
		{"Shopping", "500.00"},
		{"Entertainment", "300.00"},
	} {
		if _, err := s.CreateBudget(ctx, core.Budget{
			UserID:   DemoUserID,
			Category: b.category,
			Amount:   mustMoney(b.amount),
			Period:   core.Monthly,
			IsActive: true,
		}); err != nil {
			return fmt.Errorf("create demo budget %s: %w", b.category, err)
		}
	}

	house, vacation := date("2024-12-31"), date("2024-06-30")
	for _, g := range []core.Goal{
		{Name: "House Down Payment", TargetAmount: mustMoney("50000.00"), CurrentAmount: mustMoney("34000.00"), Category: "savings", TargetDate: &house},
		{Name: "Vacation Fund", TargetAmount: mustMoney("5000.00"), CurrentAmount: mustMoney("2100.00"), Category: "travel", TargetDate: &vacation},
	} {
		g.UserID = DemoUserID
		g.IsActive = true
		if _, err := s.CreateGoal(ctx, g); err != nil {
			return fmt.Errorf("create demo goal %s: %w", g.Name, err)
		}
	}

	for _, inv := range []core.Investment{
		{Symbol: "401K", Name: "401(k) Plan", Quantity: "1.0000", CurrentPrice: mustMoney("18492.31"), PurchasePrice: mustMoney("17000.00")},
		{Symbol: "IRA", Name: "Roth IRA", Quantity: "1.0000", CurrentPrice: mustMoney("7250.00"), PurchasePrice: mustMoney("6500.00")},
	} {
		inv.UserID = DemoUserID
		inv.Type = "retirement"
		inv.PurchaseDate = date("2023-01-01")
		if _, err := s.CreateInvestment(ctx, inv); err != nil {
			return fmt.Errorf("create demo investment %s: %w", inv.Symbol, err)
		}
	}
	return nil
}
