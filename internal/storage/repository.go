package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteRepository)(nil)

// SQLiteRepository implements store.Store on a single SQLite file.
// Amounts are stored as integer cents and times as RFC 3339 text.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer at a time; keeps SQLITE_BUSY out of request paths
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeMetadata(ns sql.NullString) (map[string]any, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Users

const userColumns = `id, username, email, first_name, last_name, created_at`

func scanUser(s scanner) (core.User, error) {
	var u core.User
	var created string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &created); err != nil {
		return core.User{}, err
	}
	var err error
	u.CreatedAt, err = parseTime(created)
	return u, err
}

func (r *SQLiteRepository) getUserWhere(ctx context.Context, where string, arg any) (core.User, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, false, nil
	}
	if err != nil {
		return core.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, bool, error) {
	return r.getUserWhere(ctx, "id = ?", id)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, bool, error) {
	return r.getUserWhere(ctx, "username = ?", username)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = newID(u.ID)
	u.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, formatTime(u.CreatedAt))
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Accounts

const accountColumns = `id, user_id, name, type, balance_cents, institution, account_number, is_active, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	var created string
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance.Cents, &a.Institution, &a.AccountNumber, &a.IsActive, &created); err != nil {
		return core.Account{}, err
	}
	var err error
	a.CreatedAt, err = parseTime(created)
	return a, err
}

func (r *SQLiteRepository) ListAccountsByUser(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]core.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, bool, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, false, nil
	}
	if err != nil {
		return core.Account{}, false, fmt.Errorf("get account: %w", err)
	}
	return a, true, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = newID(a.ID)
	a.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type, a.Balance.Cents, a.Institution, a.AccountNumber, a.IsActive, formatTime(a.CreatedAt))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, id string, balance core.Money) (core.Account, bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance_cents = ? WHERE id = ?`, balance.Cents, id)
	if err != nil {
		return core.Account{}, false, fmt.Errorf("update account balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, false, nil
	}
	return r.GetAccount(ctx, id)
}

// Transactions

const transactionColumns = `id, account_id, amount_cents, description, merchant, category, subcategory, date, is_income, ai_categorized, metadata, created_at`

func scanTransaction(s scanner) (core.Transaction, error) {
	var t core.Transaction
	var date, created string
	var meta sql.NullString
	if err := s.Scan(&t.ID, &t.AccountID, &t.Amount.Cents, &t.Description, &t.Merchant, &t.Category, &t.Subcategory,
		&date, &t.IsIncome, &t.AICategorized, &meta, &created); err != nil {
		return core.Transaction{}, err
	}
	var err error
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	t.Metadata, err = decodeMetadata(meta)
	return t, err
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListTransactionsByAccount(ctx context.Context, accountID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = ? ORDER BY seq`, accountID)
}

func (r *SQLiteRepository) ListTransactionsByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id IN (SELECT id FROM accounts WHERE user_id = ?)
		 ORDER BY seq`, userID)
}

func (r *SQLiteRepository) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	// dates may carry different offsets, so order on parsed times rather than text
	txs, err := r.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	core.SortByDateDesc(txs)
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, bool, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}
	return t, true, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = newID(t.ID)
	t.CreatedAt = r.now()
	meta, err := encodeMetadata(t.Metadata)
	if err != nil {
		return core.Transaction{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Amount.Cents, t.Description, t.Merchant, t.Category, t.Subcategory,
		formatTime(t.Date), t.IsIncome, t.AICategorized, meta, formatTime(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)
	return t, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, u store.TransactionUpdate) (core.Transaction, bool, error) {
	t, ok, err := r.GetTransaction(ctx, id)
	if err != nil || !ok {
		return core.Transaction{}, ok, err
	}
	u.Apply(&t)
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET description = ?, merchant = ?, category = ?, subcategory = ?, ai_categorized = ? WHERE id = ?`,
		t.Description, t.Merchant, t.Category, t.Subcategory, t.AICategorized, id)
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("update transaction: %w", err)
	}
	return t, true, nil
}

// Budgets

const budgetColumns = `id, user_id, category, amount_cents, period, is_active, created_at`

func scanBudget(s scanner) (core.Budget, error) {
	var b core.Budget
	var created string
	if err := s.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount.Cents, &b.Period, &b.IsActive, &created); err != nil {
		return core.Budget{}, err
	}
	var err error
	b.CreatedAt, err = parseTime(created)
	return b, err
}

func (r *SQLiteRepository) ListBudgetsByUser(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND is_active = 1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getBudget(ctx context.Context, id string) (core.Budget, bool, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("get budget: %w", err)
	}
	return b, true, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = newID(b.ID)
	b.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Category, b.Amount.Cents, string(b.Period), b.IsActive, formatTime(b.CreatedAt))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id string, u store.BudgetUpdate) (core.Budget, bool, error) {
	b, ok, err := r.getBudget(ctx, id)
	if err != nil || !ok {
		return core.Budget{}, ok, err
	}
	u.Apply(&b)
	_, err = r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount_cents = ?, period = ?, is_active = ? WHERE id = ?`,
		b.Category, b.Amount.Cents, string(b.Period), b.IsActive, id)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("update budget: %w", err)
	}
	return b, true, nil
}

// Goals

const goalColumns = `id, user_id, name, target_amount_cents, current_amount_cents, target_date, category, is_active, created_at`

func scanGoal(s scanner) (core.Goal, error) {
	var g core.Goal
	var target sql.NullString
	var created string
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &target, &g.Category, &g.IsActive, &created); err != nil {
		return core.Goal{}, err
	}
	if target.Valid {
		d, err := parseTime(target.String)
		if err != nil {
			return core.Goal{}, err
		}
		g.TargetDate = &d
	}
	var err error
	g.CreatedAt, err = parseTime(created)
	return g, err
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func (r *SQLiteRepository) ListGoalsByUser(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND is_active = 1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = newID(g.ID)
	g.CreatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, nullableTime(g.TargetDate), g.Category, g.IsActive, formatTime(g.CreatedAt))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, id string, u store.GoalUpdate) (core.Goal, bool, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, false, nil
	}
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("get goal: %w", err)
	}
	u.Apply(&g)
	_, err = r.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_amount_cents = ?, current_amount_cents = ?, target_date = ?, is_active = ? WHERE id = ?`,
		g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, nullableTime(g.TargetDate), g.IsActive, id)
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("update goal: %w", err)
	}
	return g, true, nil
}

// Investments

const investmentColumns = `id, user_id, account_id, symbol, name, quantity, current_price_cents, purchase_price_cents, purchase_date, type, created_at`

func scanInvestment(s scanner) (core.Investment, error) {
	var i core.Investment
	var purchased, created string
	if err := s.Scan(&i.ID, &i.UserID, &i.AccountID, &i.Symbol, &i.Name, &i.Quantity, &i.CurrentPrice.Cents,
		&i.PurchasePrice.Cents, &purchased, &i.Type, &created); err != nil {
		return core.Investment{}, err
	}
	var err error
	if i.PurchaseDate, err = parseTime(purchased); err != nil {
		return core.Investment{}, err
	}
	i.CreatedAt, err = parseTime(created)
	return i, err
}

func (r *SQLiteRepository) ListInvestmentsByUser(ctx context.Context, userID string) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+investmentColumns+` FROM investments WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := make([]core.Investment, 0)
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, i core.Investment) (core.Investment, error) {
	i.ID = newID(i.ID)
	i.CreatedAt = r.now()
	if i.Quantity == "" {
		i.Quantity = "0"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (`+investmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.AccountID, i.Symbol, i.Name, i.Quantity, i.CurrentPrice.Cents, i.PurchasePrice.Cents,
		formatTime(i.PurchaseDate), i.Type, formatTime(i.CreatedAt))
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) UpdateInvestment(ctx context.Context, id string, u store.InvestmentUpdate) (core.Investment, bool, error) {
	i, err := scanInvestment(r.db.QueryRowContext(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investment{}, false, nil
	}
	if err != nil {
		return core.Investment{}, false, fmt.Errorf("get investment: %w", err)
	}
	u.Apply(&i)
	_, err = r.db.ExecContext(ctx, `UPDATE investments SET quantity = ?, current_price_cents = ? WHERE id = ?`,
		i.Quantity, i.CurrentPrice.Cents, id)
	if err != nil {
		return core.Investment{}, false, fmt.Errorf("update investment: %w", err)
	}
	return i, true, nil
}

// Insights

const insightColumns = `id, user_id, type, title, content, priority, is_read, metadata, created_at`

func scanInsight(s scanner) (core.Insight, error) {
	var i core.Insight
	var meta sql.NullString
	var created string
	if err := s.Scan(&i.ID, &i.UserID, &i.Type, &i.Title, &i.Content, &i.Priority, &i.IsRead, &meta, &created); err != nil {
		return core.Insight{}, err
	}
	var err error
	if i.Metadata, err = decodeMetadata(meta); err != nil {
		return core.Insight{}, err
	}
	i.CreatedAt, err = parseTime(created)
	return i, err
}

func (r *SQLiteRepository) ListInsightsByUser(ctx context.Context, userID string) ([]core.Insight, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+insightColumns+` FROM ai_insights WHERE user_id = ? ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := make([]core.Insight, 0)
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateInsight(ctx context.Context, i core.Insight) (core.Insight, error) {
	i.ID = newID(i.ID)
	i.CreatedAt = r.now()
	meta, err := encodeMetadata(i.Metadata)
	if err != nil {
		return core.Insight{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ai_insights (`+insightColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.Type, i.Title, i.Content, string(i.Priority), i.IsRead, meta, formatTime(i.CreatedAt))
	if err != nil {
		return core.Insight{}, fmt.Errorf("create insight: %w", err)
	}
	return i, nil
}

func (r *SQLiteRepository) MarkInsightRead(ctx context.Context, id string) (core.Insight, bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE ai_insights SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return core.Insight{}, false, fmt.Errorf("mark insight read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Insight{}, false, nil
	}
	i, err := scanInsight(r.db.QueryRowContext(ctx, `SELECT `+insightColumns+` FROM ai_insights WHERE id = ?`, id))
	if err != nil {
		return core.Insight{}, false, fmt.Errorf("get insight: %w", err)
	}
	return i, true, nil
}
