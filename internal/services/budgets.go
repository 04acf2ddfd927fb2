package services

import (
	"context"
	"fmt"

	"finboard/internal/core"
	"finboard/internal/store"
)

type BudgetService struct {
	budgets store.BudgetStore
}

func NewBudgetService(budgets store.BudgetStore) *BudgetService {
	return &BudgetService{budgets: budgets}
}

// Create stores an active budget. An empty period means monthly.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.Period == "" {
		b.Period = core.Monthly
	}
	b.IsActive = true
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if b.UserID == "" {
		return core.Budget{}, invalid("userId is required")
	}
	saved, err := s.budgets.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return saved, nil
}

// Deactivate soft-deletes a budget; it disappears from listings and analysis.
func (s *BudgetService) Deactivate(ctx context.Context, id string) error {
	_, ok, err := s.budgets.UpdateBudget(ctx, id, store.BudgetUpdate{IsActive: store.Ptr(false)})
	if err != nil {
		return fmt.Errorf("deactivate budget: %w", err)
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}
