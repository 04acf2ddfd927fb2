package core

import (
	"sort"
	"time"
)

// DefaultTrendDays is the trailing window used when none is given.
const DefaultTrendDays = 30

// DayKeyLayout formats the daily bucket keys.
const DayKeyLayout = "2006-01-02"

// Trends buckets non-income spending over a trailing window.
// Values are kept in cents; the JSON view converts them.
type Trends struct {
	DailySpending    map[string]Money
	CategorySpending map[string]Money
	TotalSpending    Money
}

// AggregateTrends sums |amount| of non-income transactions dated at or after
// now minus days*24h, by calendar day of the transaction's own date and by
// exact category.
func AggregateTrends(txs []Transaction, days int, now time.Time) Trends {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	tr := Trends{
		DailySpending:    make(map[string]Money),
		CategorySpending: make(map[string]Money),
	}
	for _, t := range txs {
		if t.IsIncome || t.Date.Before(cutoff) {
			continue
		}
		amt := t.Amount.Abs()
		day := t.Date.Format(DayKeyLayout)
		tr.DailySpending[day] = tr.DailySpending[day].Add(amt)
		tr.CategorySpending[t.Category] = tr.CategorySpending[t.Category].Add(amt)
		tr.TotalSpending = tr.TotalSpending.Add(amt)
	}
	return tr
}

// Days returns the daily bucket keys in chronological order.
func (t Trends) Days() []string {
	keys := make([]string, 0, len(t.DailySpending))
	for k := range t.DailySpending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TrendsView is the JSON shape served to clients.
type TrendsView struct {
	DailySpending    map[string]float64 `json:"dailySpending"`
	CategorySpending map[string]float64 `json:"categorySpending"`
	TotalSpending    float64            `json:"totalSpending"`
}

func (t Trends) View() TrendsView {
	v := TrendsView{
		DailySpending:    make(map[string]float64, len(t.DailySpending)),
		CategorySpending: make(map[string]float64, len(t.CategorySpending)),
		TotalSpending:    t.TotalSpending.Float(),
	}
	for k, m := range t.DailySpending {
		v.DailySpending[k] = m.Float()
	}
	for k, m := range t.CategorySpending {
		v.CategorySpending[k] = m.Float()
	}
	return v
}
