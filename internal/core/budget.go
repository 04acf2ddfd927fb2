package core

import (
	"math/bits"
	"time"
)

// BudgetStatus classifies how much of a budget has been consumed.
type BudgetStatus string

const (
	StatusGood    BudgetStatus = "good"
	StatusWarning BudgetStatus = "warning"
	StatusOver    BudgetStatus = "over"
)

// Status thresholds, in percent of the budget amount.
const (
	WarningThreshold = 80
	OverThreshold    = 100
)

// BudgetAnalysis is a budget plus its consumption for the current month.
// Percentage is capped at 100 for display; ActualPercentage is not.
type BudgetAnalysis struct {
	Budget
	Spent            float64      `json:"spent"`
	Remaining        float64      `json:"remaining"`
	Percentage       float64      `json:"percentage"`
	ActualPercentage float64      `json:"actualPercentage"`
	Status           BudgetStatus `json:"status"`

	spent     Money
	remaining Money
}

// SpentMoney returns the spent amount in cents.
func (a BudgetAnalysis) SpentMoney() Money { return a.spent }

// RemainingMoney returns the remaining amount in cents.
func (a BudgetAnalysis) RemainingMoney() Money { return a.remaining }

// Overage is how far spending exceeds the budget, zero unless status is over.
func (a BudgetAnalysis) Overage() Money {
	if d := a.spent.Cents - a.Amount.Cents; d > 0 {
		return Money{Cents: d}
	}
	return Money{}
}

// MonthStart returns midnight on the first day of now's month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// AnalyzeBudgets computes month-to-date spending for each budget.
// Income never counts. Categories match by exact string equality.
// The result has one entry per budget, in input order.
func AnalyzeBudgets(budgets []Budget, txs []Transaction, now time.Time) []BudgetAnalysis {
	monthStart := MonthStart(now)

	spentByCategory := make(map[string]Money)
	for _, t := range txs {
		if t.IsIncome || t.Date.Before(monthStart) {
			continue
		}
		spentByCategory[t.Category] = spentByCategory[t.Category].Add(t.Amount.Abs())
	}

	out := make([]BudgetAnalysis, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, analyzeBudget(b, spentByCategory[b.Category]))
	}
	return out
}

func analyzeBudget(b Budget, spent Money) BudgetAnalysis {
	amount := b.Amount.Cents
	remaining := amount - spent.Cents
	if remaining < 0 {
		remaining = 0
	}

	a := BudgetAnalysis{
		Budget:    b,
		Spent:     spent.Float(),
		Remaining: Money{Cents: remaining}.Float(),
		Status:    classify(spent.Cents, amount),
		spent:     spent,
		remaining: Money{Cents: remaining},
	}
	if amount > 0 {
		a.ActualPercentage = float64(spent.Cents) / float64(amount) * 100
		a.Percentage = min(a.ActualPercentage, OverThreshold)
	}
	return a
}

// classify compares in cents: spent/amount > 80% <=> spent*100 > amount*80.
// Products are taken in 128 bits so large sums cannot wrap.
func classify(spent, amount int64) BudgetStatus {
	if amount <= 0 {
		if spent > 0 {
			return StatusOver
		}
		return StatusGood
	}
	switch {
	case mulGreater(spent, 100, amount, OverThreshold):
		return StatusOver
	case mulGreater(spent, 100, amount, WarningThreshold):
		return StatusWarning
	default:
		return StatusGood
	}
}

// mulGreater reports a*x > b*y for non-negative operands.
func mulGreater(a, x, b, y int64) bool {
	hi1, lo1 := bits.Mul64(uint64(a), uint64(x))
	hi2, lo2 := bits.Mul64(uint64(b), uint64(y))
	if hi1 != hi2 {
		return hi1 > hi2
	}
	return lo1 > lo2
}
