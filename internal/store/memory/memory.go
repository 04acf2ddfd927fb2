// Package memory is a map-backed store.Store for development and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

var _ store.Store = (*Store)(nil)

// table keeps rows by id and remembers insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) filter(keep func(T) bool) []T {
	out := make([]T, 0)
	for _, id := range t.order {
		if v := t.rows[id]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users        *table[core.User]
	accounts     *table[core.Account]
	transactions *table[core.Transaction]
	budgets      *table[core.Budget]
	goals        *table[core.Goal]
	investments  *table[core.Investment]
	insights     *table[core.Insight]
}

func New() *Store {
	return &Store{
		now:          time.Now,
		users:        newTable[core.User](),
		accounts:     newTable[core.Account](),
		transactions: newTable[core.Transaction](),
		budgets:      newTable[core.Budget](),
		goals:        newTable[core.Goal](),
		investments:  newTable[core.Investment](),
		insights:     newTable[core.Insight](),
	}
}

// NewSeeded returns a store holding the demo data set.
func NewSeeded(ctx context.Context) (*Store, error) {
	s := New()
	if err := store.SeedDemo(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Store) Ping(context.Context) error { return nil }

// Users

func (s *Store) GetUser(_ context.Context, id string) (core.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users.get(id)
	return u, ok, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.users.filter(func(u core.User) bool { return u.Username == username })
	if len(found) == 0 {
		return core.User{}, false, nil
	}
	return found[0], true, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = newID(u.ID)
	u.CreatedAt = s.now()
	s.users.put(u.ID, u)
	return u, nil
}

// Accounts

func (s *Store) ListAccountsByUser(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.filter(func(a core.Account) bool { return a.UserID == userID }), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts.get(id)
	return a, ok, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = newID(a.ID)
	a.CreatedAt = s.now()
	s.accounts.put(a.ID, a)
	return a, nil
}

func (s *Store) UpdateAccountBalance(_ context.Context, id string, balance core.Money) (core.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts.get(id)
	if !ok {
		return core.Account{}, false, nil
	}
	a.Balance = balance
	s.accounts.put(id, a)
	return a, true, nil
}

// Transactions

func copyTx(t core.Transaction) core.Transaction {
	t.Metadata = maps.Clone(t.Metadata)
	return t
}

func (s *Store) ListTransactionsByAccount(_ context.Context, accountID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.transactions.filter(func(t core.Transaction) bool { return t.AccountID == accountID })
	for i := range out {
		out[i] = copyTx(out[i])
	}
	return out, nil
}

func (s *Store) ListTransactionsByUser(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userTransactions(userID), nil
}

func (s *Store) userTransactions(userID string) []core.Transaction {
	owned := make(map[string]struct{})
	for _, a := range s.accounts.filter(func(a core.Account) bool { return a.UserID == userID }) {
		owned[a.ID] = struct{}{}
	}
	out := s.transactions.filter(func(t core.Transaction) bool {
		_, ok := owned[t.AccountID]
		return ok
	})
	for i := range out {
		out[i] = copyTx(out[i])
	}
	return out
}

func (s *Store) ListRecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.userTransactions(userID)
	core.SortByDateDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions.get(id)
	if !ok {
		return core.Transaction{}, false, nil
	}
	return copyTx(t), true, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t = copyTx(t)
	t.ID = newID(t.ID)
	t.CreatedAt = s.now()
	s.transactions.put(t.ID, t)
	return copyTx(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, u store.TransactionUpdate) (core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions.get(id)
	if !ok {
		return core.Transaction{}, false, nil
	}
	u.Apply(&t)
	s.transactions.put(id, t)
	return copyTx(t), true, nil
}

// Budgets

func (s *Store) ListBudgetsByUser(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgets.filter(func(b core.Budget) bool { return b.UserID == userID && b.IsActive }), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = newID(b.ID)
	b.CreatedAt = s.now()
	s.budgets.put(b.ID, b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, id string, u store.BudgetUpdate) (core.Budget, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets.get(id)
	if !ok {
		return core.Budget{}, false, nil
	}
	u.Apply(&b)
	s.budgets.put(id, b)
	return b, true, nil
}

// Goals

func (s *Store) ListGoalsByUser(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goals.filter(func(g core.Goal) bool { return g.UserID == userID && g.IsActive }), nil
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = newID(g.ID)
	g.CreatedAt = s.now()
	s.goals.put(g.ID, g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, id string, u store.GoalUpdate) (core.Goal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals.get(id)
	if !ok {
		return core.Goal{}, false, nil
	}
	u.Apply(&g)
	s.goals.put(id, g)
	return g, true, nil
}

// Investments

func (s *Store) ListInvestmentsByUser(_ context.Context, userID string) ([]core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.investments.filter(func(i core.Investment) bool { return i.UserID == userID }), nil
}

func (s *Store) CreateInvestment(_ context.Context, i core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = newID(i.ID)
	i.CreatedAt = s.now()
	if strings.TrimSpace(i.Quantity) == "" {
		i.Quantity = "0"
	}
	s.investments.put(i.ID, i)
	return i, nil
}

func (s *Store) UpdateInvestment(_ context.Context, id string, u store.InvestmentUpdate) (core.Investment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.investments.get(id)
	if !ok {
		return core.Investment{}, false, nil
	}
	u.Apply(&i)
	s.investments.put(id, i)
	return i, true, nil
}

// Insights

func (s *Store) ListInsightsByUser(_ context.Context, userID string) ([]core.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.insights.filter(func(i core.Insight) bool { return i.UserID == userID })
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	for i := range out {
		out[i] = copyInsight(out[i])
	}
	return out, nil
}

func (s *Store) CreateInsight(_ context.Context, i core.Insight) (core.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = newID(i.ID)
	i.CreatedAt = s.now()
	i.Metadata = maps.Clone(i.Metadata)
	s.insights.put(i.ID, i)
	return copyInsight(i), nil
}

func copyInsight(i core.Insight) core.Insight {
	i.Metadata = maps.Clone(i.Metadata)
	return i
}

func (s *Store) MarkInsightRead(_ context.Context, id string) (core.Insight, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.insights.get(id)
	if !ok {
		return core.Insight{}, false, nil
	}
	i.IsRead = true
	s.insights.put(id, i)
	return copyInsight(i), true, nil
}
