package services

import (
	"context"
	"fmt"
	"maps"
	"time"

	"finboard/internal/ai"
	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

// TransactionInput is a transaction as submitted by a client.
type TransactionInput struct {
	AccountID   string
	Amount      core.Money
	Description string
	Merchant    string
	Category    string
	Subcategory string
	Date        time.Time // zero means now
	IsIncome    bool
	Metadata    map[string]any
}

// TransactionFilter narrows a user's transaction list. Empty fields match all.
type TransactionFilter struct {
	Category  string
	AccountID string
	Start     *time.Time
	End       *time.Time
}

func (f TransactionFilter) match(t core.Transaction) bool {
	switch {
	case f.Category != "" && t.Category != f.Category:
		return false
	case f.AccountID != "" && t.AccountID != f.AccountID:
		return false
	case f.Start != nil && t.Date.Before(*f.Start):
		return false
	case f.End != nil && t.Date.After(*f.End):
		return false
	}
	return true
}

type TransactionService struct {
	transactions store.TransactionStore
	accounts     store.AccountStore
	categorizer  ai.Categorizer
	events       EventPublisher
	logger       *log.Logger
	slog         *log.StructuredLogger
	now          func() time.Time
}

// NewTransactionService wires the service. events may be nil when no broker
// is configured.
func NewTransactionService(transactions store.TransactionStore, accounts store.AccountStore, categorizer ai.Categorizer, events EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentTransaction)
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		categorizer:  categorizer,
		events:       events,
		logger:       logger,
		slog:         log.NewStructuredLogger(logger),
		now:          time.Now,
	}
}

// Create validates and stores a transaction. An empty category is filled in
// by the categorizer and the transaction is marked aiCategorized.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		AccountID:   in.AccountID,
		Amount:      in.Amount,
		Description: in.Description,
		Merchant:    in.Merchant,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Date:        in.Date,
		IsIncome:    in.IsIncome,
		Metadata:    maps.Clone(in.Metadata),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}

	if tx.Category == "" {
		c := s.categorizer.Categorize(ctx, tx.Description, tx.Merchant, tx.Amount)
		tx.Category = c.Category
		tx.Subcategory = c.Subcategory
		tx.AICategorized = true
	}
	return s.record(ctx, tx)
}

// record persists tx on an existing account and announces it.
func (s *TransactionService) record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	acc, ok, err := s.accounts.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load account: %w", err)
	}
	if !ok {
		return core.Transaction{}, invalid("unknown account %q", tx.AccountID)
	}

	saved, err := s.transactions.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.slog.LogTransactionCreated(ctx, acc.UserID, saved.ID, saved.AccountID, saved.Amount.Cents, saved.Category, saved.AICategorized)

	s.publish(ctx, amqp.NewTransactionCreated(saved.ID, acc.UserID))
	return saved, nil
}

// publish never fails the caller: the transaction is already stored.
func (s *TransactionService) publish(ctx context.Context, ev amqp.TransactionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		s.slog.LogError(ctx, "Failed to publish transaction event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(ev.UserID))
	}
}

// List returns the user's transactions matching f, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	all, err := s.transactions.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if f.match(t) {
			out = append(out, t)
		}
	}
	core.SortByDateDesc(out)
	return out, nil
}

// Recategorize asks the categorizer again for an existing transaction.
func (s *TransactionService) Recategorize(ctx context.Context, id string) (core.Transaction, error) {
	tx, ok, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	c := s.categorizer.Categorize(ctx, tx.Description, tx.Merchant, tx.Amount)
	updated, ok, err := s.transactions.UpdateTransaction(ctx, id, store.TransactionUpdate{
		Category:      store.Ptr(c.Category),
		Subcategory:   store.Ptr(c.Subcategory),
		AICategorized: store.Ptr(true),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return updated, nil
}
