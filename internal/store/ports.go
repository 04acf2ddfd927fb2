// Package store defines the storage ports the services depend on.
//
// Lookups of unknown identifiers never fail: lists come back empty and
// single-record getters and updates report ok=false.
package store

import (
	"context"
	"errors"

	"finboard/internal/core"
)

// ErrNotFound is returned by services when an addressed record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultRecentLimit is the number of transactions the dashboard shows.
const DefaultRecentLimit = 10

type (
	UserStore interface {
		GetUser(ctx context.Context, id string) (core.User, bool, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, bool, error)
		CreateUser(ctx context.Context, u core.User) (core.User, error)
	}

	AccountStore interface {
		ListAccountsByUser(ctx context.Context, userID string) ([]core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, bool, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, bool, error)
	}

	TransactionStore interface {
		ListTransactionsByAccount(ctx context.Context, accountID string) ([]core.Transaction, error)
		// ListTransactionsByUser returns transactions across all of the user's accounts.
		ListTransactionsByUser(ctx context.Context, userID string) ([]core.Transaction, error)
		// ListRecentTransactions returns at most limit transactions, newest first.
		ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, bool, error)
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id string, u TransactionUpdate) (core.Transaction, bool, error)
	}

	BudgetStore interface {
		// ListBudgetsByUser returns active budgets only, in creation order.
		ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, id string, u BudgetUpdate) (core.Budget, bool, error)
	}

	GoalStore interface {
		// ListGoalsByUser returns active goals only.
		ListGoalsByUser(ctx context.Context, userID string) ([]core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, id string, u GoalUpdate) (core.Goal, bool, error)
	}

	InvestmentStore interface {
		ListInvestmentsByUser(ctx context.Context, userID string) ([]core.Investment, error)
		CreateInvestment(ctx context.Context, i core.Investment) (core.Investment, error)
		UpdateInvestment(ctx context.Context, id string, u InvestmentUpdate) (core.Investment, bool, error)
	}

	InsightStore interface {
		ListInsightsByUser(ctx context.Context, userID string) ([]core.Insight, error)
		CreateInsight(ctx context.Context, i core.Insight) (core.Insight, error)
		MarkInsightRead(ctx context.Context, id string) (core.Insight, bool, error)
	}

	// Store is the full data store used by the API.
	Store interface {
		UserStore
		AccountStore
		TransactionStore
		BudgetStore
		GoalStore
		InvestmentStore
		InsightStore
	}

	// Pinger is implemented by stores that can report connectivity.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
