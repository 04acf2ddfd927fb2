package core

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	now := day(20)
	accounts := []Account{
		{Balance: Money{Cents: 824752}},
		{Balance: Money{Cents: -124730}},
		{Balance: Money{Cents: 584730}},
	}
	recent := []Transaction{
		tx(-485, "Food & Dining", now.Add(-24*time.Hour), false),
		tx(325000, "Income", now.Add(-24*time.Hour), true),
		tx(-4230, "Transportation", now.Add(-40*24*time.Hour), false),
	}
	investments := []Investment{
		{CurrentPrice: Money{Cents: 1849231}},
		{CurrentPrice: Money{Cents: 725000}},
	}
	s := Summarize(accounts, recent, investments, now)
	if s.TotalBalance != 12847.52 {
		t.Errorf("totalBalance=%v", s.TotalBalance)
	}
	if s.MonthlySpending != 4.85 {
		t.Errorf("monthlySpending=%v", s.MonthlySpending)
	}
	if s.TotalInvestments != 25742.31 {
		t.Errorf("totalInvestments=%v", s.TotalInvestments)
	}
	if s.CreditScore != 742 {
		t.Errorf("creditScore=%v", s.CreditScore)
	}
}

func TestUnreadInsights(t *testing.T) {
	base := day(1)
	var in []Insight
	for i := 0; i < 5; i++ {
		in = append(in, Insight{ID: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Hour), IsRead: i == 4})
	}
	got := UnreadInsights(in, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0].ID != "d" || got[2].ID != "b" {
		t.Fatalf("expected newest unread first, got %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
	if len(UnreadInsights(nil, 3)) != 0 {
		t.Fatalf("expected empty")
	}
}

func TestSortByDateDesc(t *testing.T) {
	txs := []Transaction{{ID: "old", Date: day(1)}, {ID: "new", Date: day(9)}, {ID: "mid", Date: day(5)}}
	SortByDateDesc(txs)
	if txs[0].ID != "new" || txs[1].ID != "mid" || txs[2].ID != "old" {
		t.Fatalf("unexpected order: %v", txs)
	}
}
