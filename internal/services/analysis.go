package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
	"finboard/internal/store"
)

const (
	// MaxTrendDays bounds the trailing window a client may ask for.
	MaxTrendDays = 365
	// DashboardInsights is how many unread insights the dashboard shows.
	DashboardInsights = 3
)

// Dashboard is everything the overview page needs in one response.
type Dashboard struct {
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
	Goals        []core.Goal        `json:"goals"`
	Investments  []core.Investment  `json:"investments"`
	Insights     []core.Insight     `json:"insights"`
	Summary      core.Summary       `json:"summary"`
}

type AnalysisService struct {
	store store.Store
	now   func() time.Time
}

func NewAnalysisService(s store.Store) *AnalysisService {
	return &AnalysisService{store: s, now: time.Now}
}

// Budgets compares each active budget with this month's spending.
func (s *AnalysisService) Budgets(ctx context.Context, userID string) ([]core.BudgetAnalysis, error) {
	var (
		budgets []core.Budget
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgetsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactionsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load budget analysis inputs: %w", err)
	}
	return core.AnalyzeBudgets(budgets, txs, s.now()), nil
}

// Trends aggregates spending over the last days days. days must be positive;
// larger values than MaxTrendDays are clamped.
func (s *AnalysisService) Trends(ctx context.Context, userID string, days int) (core.Trends, error) {
	if days < 1 {
		return core.Trends{}, invalid("days must be a positive number")
	}
	days = min(days, MaxTrendDays)
	txs, err := s.store.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return core.Trends{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.AggregateTrends(txs, days, s.now()), nil
}

// Dashboard loads the six dashboard collections concurrently and summarizes them.
func (s *AnalysisService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var (
		d        Dashboard
		insights []core.Insight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Accounts, err = s.store.ListAccountsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Transactions, err = s.store.ListRecentTransactions(gctx, userID, store.DefaultRecentLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Budgets, err = s.store.ListBudgetsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Goals, err = s.store.ListGoalsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Investments, err = s.store.ListInvestmentsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		insights, err = s.store.ListInsightsByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	d.Insights = core.UnreadInsights(insights, DashboardInsights)
	d.Summary = core.Summarize(d.Accounts, d.Transactions, d.Investments, s.now())
	return d, nil
}
