package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	"financas/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore connects, pings and migrates the database.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, now: time.Now}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrAlreadyExists
	}
	return err
}

const transactionColumns = `id, user_id, type, amount::text, category, description, is_recurring, recurring_interval, transaction_date, source_transaction_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		amount   string
		interval *string
		date     time.Time
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &amount, &t.Category, &t.Description, &t.IsRecurring, &interval, &date, &t.SourceTransactionID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if interval != nil {
		t.RecurringInterval = core.RecurringInterval(*interval)
	}
	t.TransactionDate = core.DateOf(date)
	return t, nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateTransaction inserts a new transaction row.
func (s *Store) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	const query = `
	INSERT INTO transactions (user_id, type, amount, category, description, is_recurring, recurring_interval, transaction_date, created_at, updated_at)
	VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $9)
	RETURNING ` + transactionColumns
	row := s.pool.QueryRow(ctx, query, userID, string(t.Type), t.Amount.String(), t.Category, t.Description,
		t.Recurring(), optional(string(t.RecurringInterval)), t.TransactionDate.Time, s.stamp())
	created, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", created.ID,
		"user_id", userID,
		"type", created.Type,
		"amount", created.Amount.String(),
		"category", created.Category)
	return created, nil
}

// ListTransactions returns one page of the user's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string, page storage.Page) ([]core.Transaction, error) {
	page = page.Normalize()
	const query = `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE user_id = $1
	ORDER BY transaction_date DESC, created_at DESC, id DESC
	LIMIT $2 OFFSET $3`
	txs, err := s.queryTransactions(ctx, query, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) ListTransactionsBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	const query = `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE user_id = $1 AND transaction_date BETWEEN $2 AND $3
	ORDER BY transaction_date, id`
	txs, err := s.queryTransactions(ctx, query, userID, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("list transactions between %s and %s: %w", from, to, err)
	}
	return txs, nil
}

const categoryColumns = `id, user_id, name, type, color, created_at, updated_at`

func scanCategory(row pgx.Row) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCategories(ctx context.Context, userID string, filter storage.CategoryFilter) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1`
	args := []any{userID}
	if filter.Type != "" {
		query += ` AND type = $2`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY name, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error) {
	const query = `
	INSERT INTO categories (user_id, name, type, color, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	RETURNING ` + categoryColumns
	created, err := scanCategory(s.pool.QueryRow(ctx, query, userID, c.Name, string(c.Type), c.Color, s.stamp()))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapError(err))
	}
	return created, nil
}

const savingsGoalColumns = `id, user_id, name, target_amount::text, current_amount::text, target_date, description, created_at, updated_at`

func scanSavingsGoal(row pgx.Row) (core.SavingsGoal, error) {
	var (
		g               core.SavingsGoal
		target, current string
		targetDate      *time.Time
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &targetDate, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse target amount %q: %w", target, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("parse current amount %q: %w", current, err)
	}
	if targetDate != nil {
		d := core.DateOf(*targetDate)
		g.TargetDate = &d
	}
	return g, nil
}

func (s *Store) ListSavingsGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	const query = `SELECT ` + savingsGoalColumns + ` FROM savings_goals WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	goals := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *Store) CreateSavingsGoal(ctx context.Context, userID string, g core.NewSavingsGoal) (core.SavingsGoal, error) {
	const query = `
	INSERT INTO savings_goals (user_id, name, target_amount, current_amount, target_date, description, created_at, updated_at)
	VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6, $7, $7)
	RETURNING ` + savingsGoalColumns
	current := decimal.Zero
	if g.CurrentAmount != nil {
		current = *g.CurrentAmount
	}
	var targetDate *time.Time
	if g.TargetDate != nil {
		targetDate = &g.TargetDate.Time
	}
	created, err := scanSavingsGoal(s.pool.QueryRow(ctx, query, userID, g.Name, g.TargetAmount.String(), current.String(), targetDate, g.Description, s.stamp()))
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", mapError(err))
	}
	return created, nil
}

const preferencesColumns = `id, user_id, monthly_income::text, currency, savings_rate, budget_allocation, created_at, updated_at`

func scanPreferences(row pgx.Row) (core.UserPreferences, error) {
	var (
		p      core.UserPreferences
		income string
	)
	if err := row.Scan(&p.ID, &p.UserID, &income, &p.Currency, &p.SavingsRate, &p.BudgetAllocation, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return core.UserPreferences{}, err
	}
	d, err := decimal.NewFromString(income)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("parse monthly income %q: %w", income, err)
	}
	p.MonthlyIncome = d
	return p, nil
}

const getPreferencesQuery = `SELECT ` + preferencesColumns + ` FROM user_preferences WHERE user_id = $1`

func (s *Store) GetPreferences(ctx context.Context, userID string) (core.UserPreferences, error) {
	p, err := scanPreferences(s.pool.QueryRow(ctx, getPreferencesQuery, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.UserPreferences{}, storage.ErrNotFound
		}
		return core.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

func (s *Store) UpdatePreferences(ctx context.Context, userID string, u core.PreferencesUpdate) (core.UserPreferences, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanPreferences(tx.QueryRow(ctx, getPreferencesQuery+` FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.UserPreferences{}, storage.ErrNotFound
		}
		return core.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	next := current.Apply(u)

	const query = `
	UPDATE user_preferences
	SET monthly_income = $2::numeric, currency = $3, savings_rate = $4, budget_allocation = $5, updated_at = $6
	WHERE user_id = $1
	RETURNING ` + preferencesColumns
	updated, err := scanPreferences(tx.QueryRow(ctx, query, userID, next.MonthlyIncome.String(), next.Currency, next.SavingsRate, next.BudgetAllocation, s.stamp()))
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("update preferences: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.UserPreferences{}, fmt.Errorf("commit preferences update: %w", err)
	}
	return updated, nil
}

func (s *Store) InitializePreferences(ctx context.Context, userID string) (core.UserPreferences, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.stamp()
	defaults := core.DefaultPreferences(userID)
	tag, err := tx.Exec(ctx, `
	INSERT INTO user_preferences (user_id, monthly_income, currency, savings_rate, budget_allocation, created_at, updated_at)
	VALUES ($1, $2::numeric, $3, $4, $5, $6, $6)
	ON CONFLICT (user_id) DO NOTHING`,
		userID, defaults.MonthlyIncome.String(), defaults.Currency, defaults.SavingsRate, defaults.BudgetAllocation, now)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("insert preferences: %w", err)
	}

	if tag.RowsAffected() == 1 {
		copied, err := tx.Exec(ctx, `
		INSERT INTO categories (user_id, name, type, color, created_at, updated_at)
		SELECT $1, name, type, color, $2, $2 FROM categories WHERE user_id = $3 ORDER BY id`,
			userID, now, core.DefaultUserID)
		if err != nil {
			return core.UserPreferences{}, fmt.Errorf("copy default categories: %w", err)
		}
		slog.InfoContext(ctx, "Initialized user preferences",
			"user_id", userID,
			"categories", copied.RowsAffected())
	}

	p, err := scanPreferences(tx.QueryRow(ctx, getPreferencesQuery, userID))
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("read preferences: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.UserPreferences{}, fmt.Errorf("commit preferences init: %w", err)
	}
	return p, nil
}

func (s *Store) UpsertUser(ctx context.Context, u core.User) (core.User, error) {
	const query = `
	INSERT INTO users (id, email, name, picture, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, picture = EXCLUDED.picture, updated_at = EXCLUDED.updated_at
	RETURNING id, email, name, picture, created_at, updated_at`
	var out core.User
	err := s.pool.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.Picture, s.stamp()).
		Scan(&out.ID, &out.Email, &out.Name, &out.Picture, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (core.User, error) {
	var out core.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, name, picture, created_at, updated_at FROM users WHERE id = $1`, userID).
		Scan(&out.ID, &out.Email, &out.Name, &out.Picture, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.User{}, storage.ErrNotFound
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.UserID, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("create session: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (core.Session, error) {
	var sess core.Session
	err := s.pool.QueryRow(ctx, `SELECT id::text, user_id, created_at, expires_at FROM sessions WHERE id::text = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Session{}, storage.ErrNotFound
		}
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id::text = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, s.stamp())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListRecurringUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT user_id FROM transactions WHERE is_recurring ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list recurring users: %w", err)
	}
	return ids, nil
}

func (s *Store) ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND is_recurring ORDER BY id`
	txs, err := s.queryTransactions(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) LastOccurrenceDate(ctx context.Context, userID string, templateID int64) (core.Date, bool, error) {
	var last *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(transaction_date) FROM transactions WHERE user_id = $1 AND source_transaction_id = $2`, userID, templateID).Scan(&last)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("last occurrence of %d: %w", templateID, err)
	}
	if last == nil {
		return core.Date{}, false, nil
	}
	return core.DateOf(*last), true, nil
}

func (s *Store) CreateOccurrence(ctx context.Context, userID string, template core.Transaction, date core.Date) (bool, error) {
	const query = `
	INSERT INTO transactions (user_id, type, amount, category, description, is_recurring, recurring_interval, transaction_date, source_transaction_id, created_at, updated_at)
	SELECT user_id, type, amount, category, description, FALSE, NULL, $1, id, $2, $2
	FROM transactions
	WHERE id = $3 AND user_id = $4 AND is_recurring
	ON CONFLICT (source_transaction_id, transaction_date) DO NOTHING`
	tag, err := s.pool.Exec(ctx, query, date.Time, s.stamp(), template.ID, userID)
	if err != nil {
		return false, fmt.Errorf("create occurrence of %d on %s: %w", template.ID, date, err)
	}
	return tag.RowsAffected() > 0, nil
}
