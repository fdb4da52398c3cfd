package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financas/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// timeLayout keeps TEXT timestamps fixed-width so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN builds the modernc connection string for a database file.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; concurrent requests queue on the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source used for created_at/updated_at.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
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

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:            userID,
		Type:              string(t.Type),
		Amount:            t.Amount.String(),
		Category:          t.Category,
		Description:       t.Description,
		IsRecurring:       t.Recurring(),
		RecurringInterval: nullString(string(t.RecurringInterval)),
		TransactionDate:   t.TransactionDate.String(),
		CreatedAt:         r.stamp(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", userID,
		"type", row.Type,
		"amount", row.Amount,
		"category", row.Category)

	return toTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, page Page) ([]core.Transaction, error) {
	page = page.Normalize()
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID: userID,
		Limit:  int64(page.Limit),
		Offset: int64(page.Offset()),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsBetween(ctx, ListTransactionsBetweenParams{
		UserID:   userID,
		FromDate: from.String(),
		ToDate:   to.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions between %s and %s: %w", from, to, err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string, filter CategoryFilter) ([]core.Category, error) {
	var (
		rows []Category
		err  error
	)
	if filter.Type != "" {
		rows, err = r.queries.ListCategoriesByType(ctx, ListCategoriesByTypeParams{UserID: userID, Type: string(filter.Type)})
	} else {
		rows, err = r.queries.ListCategories(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		c, err := toCategory(row)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		UserID:    userID,
		Name:      c.Name,
		Type:      string(c.Type),
		Color:     c.Color,
		CreatedAt: r.stamp(),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return toCategory(row)
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := r.queries.ListSavingsGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}

	goals := make([]core.SavingsGoal, 0, len(rows))
	for _, row := range rows {
		g, err := toSavingsGoal(row)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, userID string, g core.NewSavingsGoal) (core.SavingsGoal, error) {
	current := decimal.Zero
	if g.CurrentAmount != nil {
		current = *g.CurrentAmount
	}
	var target sql.NullString
	if g.TargetDate != nil {
		target = nullString(g.TargetDate.String())
	}

	row, err := r.queries.CreateSavingsGoal(ctx, CreateSavingsGoalParams{
		UserID:        userID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.String(),
		CurrentAmount: current.String(),
		TargetDate:    target,
		Description:   g.Description,
		CreatedAt:     r.stamp(),
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	return toSavingsGoal(row)
}

func (r *SQLiteRepository) GetPreferences(ctx context.Context, userID string) (core.UserPreferences, error) {
	return getPreferences(ctx, r.queries, userID)
}

func getPreferences(ctx context.Context, q *Queries, userID string) (core.UserPreferences, error) {
	row, err := q.GetPreferences(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserPreferences{}, ErrNotFound
	}
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return toPreferences(row)
}

func (r *SQLiteRepository) UpdatePreferences(ctx context.Context, userID string, u core.PreferencesUpdate) (core.UserPreferences, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	current, err := getPreferences(ctx, q, userID)
	if err != nil {
		return core.UserPreferences{}, err
	}
	next := current.Apply(u)

	if _, err := q.UpdatePreferences(ctx, UpdatePreferencesParams{
		UserID:           userID,
		MonthlyIncome:    next.MonthlyIncome.String(),
		Currency:         next.Currency,
		SavingsRate:      next.SavingsRate,
		BudgetAllocation: next.BudgetAllocation,
		UpdatedAt:        r.stamp(),
	}); err != nil {
		return core.UserPreferences{}, fmt.Errorf("update preferences: %w", err)
	}

	updated, err := getPreferences(ctx, q, userID)
	if err != nil {
		return core.UserPreferences{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.UserPreferences{}, fmt.Errorf("commit preferences update: %w", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) InitializePreferences(ctx context.Context, userID string) (core.UserPreferences, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	now := r.stamp()
	defaults := core.DefaultPreferences(userID)
	inserted, err := q.InsertPreferencesIfAbsent(ctx, InsertPreferencesParams{
		UserID:           userID,
		MonthlyIncome:    defaults.MonthlyIncome.String(),
		Currency:         defaults.Currency,
		SavingsRate:      defaults.SavingsRate,
		BudgetAllocation: defaults.BudgetAllocation,
		CreatedAt:        now,
	})
	if err != nil {
		return core.UserPreferences{}, fmt.Errorf("insert preferences: %w", err)
	}

	if inserted == 1 {
		copied, err := q.CopyDefaultCategories(ctx, CopyDefaultCategoriesParams{UserID: userID, CreatedAt: now})
		if err != nil {
			return core.UserPreferences{}, fmt.Errorf("copy default categories: %w", err)
		}
		slog.InfoContext(ctx, "Initialized user preferences",
			"user_id", userID,
			"categories", copied)
	}

	prefs, err := getPreferences(ctx, q, userID)
	if err != nil {
		return core.UserPreferences{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.UserPreferences{}, fmt.Errorf("commit preferences init: %w", err)
	}
	return prefs, nil
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) (core.User, error) {
	row, err := r.queries.UpsertUser(ctx, UpsertUserParams{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		UpdatedAt: r.stamp(),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return toUser(row)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return toUser(row)
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	err := r.queries.CreateSession(ctx, Session{
		ID:        s.ID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt.UTC().Format(timeLayout),
		ExpiresAt: s.ExpiresAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (core.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Session{}, err
	}
	expires, err := parseTime(row.ExpiresAt)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{ID: row.ID, UserID: row.UserID, CreatedAt: created, ExpiresAt: expires}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if err := r.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, r.stamp())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListRecurringUserIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListRecurringUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring users: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListRecurringTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) LastOccurrenceDate(ctx context.Context, userID string, templateID int64) (core.Date, bool, error) {
	d, err := r.queries.LastOccurrenceDate(ctx, LastOccurrenceDateParams{UserID: userID, SourceTransactionID: templateID})
	if err != nil {
		return core.Date{}, false, fmt.Errorf("last occurrence of %d: %w", templateID, err)
	}
	if !d.Valid {
		return core.Date{}, false, nil
	}
	date, err := core.ParseDate(d.String)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("parse occurrence date %q: %w", d.String, err)
	}
	return date, true, nil
}

func (r *SQLiteRepository) CreateOccurrence(ctx context.Context, userID string, template core.Transaction, date core.Date) (bool, error) {
	n, err := r.queries.CreateOccurrence(ctx, CreateOccurrenceParams{
		UserID:              userID,
		SourceTransactionID: template.ID,
		TransactionDate:     date.String(),
		CreatedAt:           r.stamp(),
	})
	if err != nil {
		return false, fmt.Errorf("create occurrence of %d on %s: %w", template.ID, date, err)
	}
	return n > 0, nil
}
