package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/ai"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

// InsightWindow is how far back insight generation looks.
const InsightWindow = 30 * 24 * time.Hour

type InsightService struct {
	store     store.Store
	generator ai.InsightGenerator
	logger    *log.Logger
	now       func() time.Time
}

func NewInsightService(s store.Store, generator ai.InsightGenerator, logger *log.Logger) *InsightService {
	if logger == nil {
		logger = log.Discard()
	}
	return &InsightService{
		store:     s,
		generator: generator,
		logger:    logger.WithComponent(log.ComponentInsight),
		now:       time.Now,
	}
}

// Generate asks the model for suggestions about the last 30 days, stores each
// one as an unread insight and returns the suggestions.
func (s *InsightService) Generate(ctx context.Context, userID string) ([]ai.InsightSuggestion, error) {
	var (
		txs     []core.Transaction
		budgets []core.Budget
		user    core.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactionsByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgetsByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		u, ok, err := s.store.GetUser(gctx, userID)
		if ok {
			user = u
		} else {
			user = core.User{ID: userID}
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load insight inputs: %w", err)
	}

	cutoff := s.now().Add(-InsightWindow)
	recent := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Date.Before(cutoff) {
			recent = append(recent, t)
		}
	}

	suggestions := s.generator.GenerateInsights(ctx, ai.InsightRequest{User: user, Transactions: recent, Budgets: budgets})
	for _, sug := range suggestions {
		if _, err := s.store.CreateInsight(ctx, insightFrom(userID, sug)); err != nil {
			return nil, fmt.Errorf("save insight: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Insights generated",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpGenerate,
		log.FieldCount, len(suggestions))
	return suggestions, nil
}

func insightFrom(userID string, s ai.InsightSuggestion) core.Insight {
	var meta map[string]any
	if s.Category != "" || s.Amount != nil {
		meta = map[string]any{}
		if s.Category != "" {
			meta["category"] = s.Category
		}
		if s.Amount != nil {
			meta["amount"] = *s.Amount
		}
	}
	return core.Insight{
		UserID:   userID,
		Type:     string(s.Type),
		Title:    s.Title,
		Content:  s.Description,
		Priority: s.Priority,
		Metadata: meta,
	}
}

// List returns every stored insight of the user, newest first.
func (s *InsightService) List(ctx context.Context, userID string) ([]core.Insight, error) {
	return s.store.ListInsightsByUser(ctx, userID)
}

func (s *InsightService) MarkRead(ctx context.Context, id string) (core.Insight, error) {
	in, ok, err := s.store.MarkInsightRead(ctx, id)
	if err != nil {
		return core.Insight{}, fmt.Errorf("mark insight read: %w", err)
	}
	if !ok {
		return core.Insight{}, store.ErrNotFound
	}
	return in, nil
}
