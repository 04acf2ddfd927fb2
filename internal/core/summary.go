package core

import (
	"sort"
	"time"
)

// PlaceholderCreditScore is reported until a bureau integration exists.
const PlaceholderCreditScore = 742

// RecentWindow is the trailing period counted as "monthly" spending on the dashboard.
const RecentWindow = 30 * 24 * time.Hour

// Summary is the dashboard totals block.
type Summary struct {
	TotalBalance     float64 `json:"totalBalance"`
	MonthlySpending  float64 `json:"monthlySpending"`
	TotalInvestments float64 `json:"totalInvestments"`
	CreditScore      int     `json:"creditScore"`
}

// Summarize computes dashboard totals. Monthly spending only looks at the
// transactions passed in, which on the dashboard are the most recent ones.
func Summarize(accounts []Account, recent []Transaction, investments []Investment, now time.Time) Summary {
	var balance, spending, invested Money
	for _, a := range accounts {
		balance = balance.Add(a.Balance)
	}
	cutoff := now.Add(-RecentWindow)
	for _, t := range recent {
		if !t.IsIncome && t.Date.After(cutoff) {
			spending = spending.Add(t.Amount.Abs())
		}
	}
	for _, inv := range investments {
		invested = invested.Add(inv.CurrentPrice)
	}
	return Summary{
		TotalBalance:     balance.Float(),
		MonthlySpending:  spending.Float(),
		TotalInvestments: invested.Float(),
		CreditScore:      PlaceholderCreditScore,
	}
}

// UnreadInsights returns at most limit unread insights, newest first.
func UnreadInsights(insights []Insight, limit int) []Insight {
	out := make([]Insight, 0, limit)
	for _, i := range insights {
		if !i.IsRead {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortByDateDesc orders transactions newest first, in place.
func SortByDateDesc(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
}
