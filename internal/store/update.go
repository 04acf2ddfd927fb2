package store

import (
	"time"

	"finboard/internal/core"
)

// Partial updates: nil fields are left unchanged.
type (
	TransactionUpdate struct {
		Description   *string
		Merchant      *string
		Category      *string
		Subcategory   *string
		AICategorized *bool
	}

	BudgetUpdate struct {
		Category *string
		Amount   *core.Money
		Period   *core.Period
		IsActive *bool
	}

	GoalUpdate struct {
		Name          *string
		TargetAmount  *core.Money
		CurrentAmount *core.Money
		TargetDate    *time.Time
		IsActive      *bool
	}

	InvestmentUpdate struct {
		Quantity     *string
		CurrentPrice *core.Money
	}
)

func (u TransactionUpdate) Apply(t *core.Transaction) {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Merchant != nil {
		t.Merchant = *u.Merchant
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
	if u.Subcategory != nil {
		t.Subcategory = *u.Subcategory
	}
	if u.AICategorized != nil {
		t.AICategorized = *u.AICategorized
	}
}

func (u BudgetUpdate) Apply(b *core.Budget) {
	if u.Category != nil {
		b.Category = *u.Category
	}
	if u.Amount != nil {
		b.Amount = *u.Amount
	}
	if u.Period != nil {
		b.Period = *u.Period
	}
	if u.IsActive != nil {
		b.IsActive = *u.IsActive
	}
}

func (u GoalUpdate) Apply(g *core.Goal) {
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.TargetAmount != nil {
		g.TargetAmount = *u.TargetAmount
	}
	if u.CurrentAmount != nil {
		g.CurrentAmount = *u.CurrentAmount
	}
	if u.TargetDate != nil {
		d := *u.TargetDate
		g.TargetDate = &d
	}
	if u.IsActive != nil {
		g.IsActive = *u.IsActive
	}
}

func (u InvestmentUpdate) Apply(i *core.Investment) {
	if u.Quantity != nil {
		i.Quantity = *u.Quantity
	}
	if u.CurrentPrice != nil {
		i.CurrentPrice = *u.CurrentPrice
	}
}

// Ptr returns a pointer to v, for building updates.
func Ptr[T any](v T) *T { return &v }
