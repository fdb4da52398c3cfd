package storage

import (
	"context"
	"database/sql"
)

const transactionColumns = `id, user_id, type, amount, category, description, is_recurring, recurring_interval, transaction_date, source_transaction_id, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Type,
		&i.Amount,
		&i.Category,
		&i.Description,
		&i.IsRecurring,
		&i.RecurringInterval,
		&i.TransactionDate,
		&i.SourceTransactionID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `
INSERT INTO transactions (user_id, type, amount, category, description, is_recurring, recurring_interval, transaction_date, source_transaction_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	UserID            string
	Type              string
	Amount            string
	Category          string
	Description       string
	IsRecurring       bool
	RecurringInterval sql.NullString
	TransactionDate   string
	CreatedAt         string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID,
		arg.Type,
		arg.Amount,
		arg.Category,
		arg.Description,
		arg.IsRecurring,
		arg.RecurringInterval,
		arg.TransactionDate,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY transaction_date DESC, created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListTransactionsParams struct {
	UserID string
	Limit  int64
	Offset int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listTransactionsBetween = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND transaction_date >= ? AND transaction_date <= ?
ORDER BY transaction_date ASC, id ASC`

type ListTransactionsBetweenParams struct {
	UserID   string
	FromDate string
	ToDate   string
}

func (q *Queries) ListTransactionsBetween(ctx context.Context, arg ListTransactionsBetweenParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, arg.UserID, arg.FromDate, arg.ToDate)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listRecurringTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND is_recurring = 1
ORDER BY id`

func (q *Queries) ListRecurringTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringTransactions, userID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listRecurringUserIDs = `
SELECT DISTINCT user_id FROM transactions WHERE is_recurring = 1 ORDER BY user_id`

func (q *Queries) ListRecurringUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}

const lastOccurrenceDate = `
SELECT MAX(transaction_date) FROM transactions
WHERE user_id = ? AND source_transaction_id = ?`

type LastOccurrenceDateParams struct {
	UserID              string
	SourceTransactionID int64
}

func (q *Queries) LastOccurrenceDate(ctx context.Context, arg LastOccurrenceDateParams) (sql.NullString, error) {
	var d sql.NullString
	err := q.db.QueryRowContext(ctx, lastOccurrenceDate, arg.UserID, arg.SourceTransactionID).Scan(&d)
	return d, err
}

const createOccurrence = `
INSERT INTO transactions (user_id, type, amount, category, description, is_recurring, recurring_interval, transaction_date, source_transaction_id, created_at, updated_at)
SELECT user_id, type, amount, category, description, 0, NULL, ?, id, ?, ?
FROM transactions
WHERE id = ? AND user_id = ? AND is_recurring = 1
ON CONFLICT (source_transaction_id, transaction_date) DO NOTHING`

type CreateOccurrenceParams struct {
	UserID              string
	SourceTransactionID int64
	TransactionDate     string
	CreatedAt           string
}

func (q *Queries) CreateOccurrence(ctx context.Context, arg CreateOccurrenceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createOccurrence,
		arg.TransactionDate,
		arg.CreatedAt,
		arg.CreatedAt,
		arg.SourceTransactionID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const categoryColumns = `id, user_id, name, type, color, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var i Category
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Type, &i.Color, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) queryCategories(ctx context.Context, query string, args ...any) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		i, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCategories = `
SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context, userID string) ([]Category, error) {
	return q.queryCategories(ctx, listCategories, userID)
}

const listCategoriesByType = `
SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ? AND type = ? ORDER BY name, id`

type ListCategoriesByTypeParams struct {
	UserID string
	Type   string
}

func (q *Queries) ListCategoriesByType(ctx context.Context, arg ListCategoriesByTypeParams) ([]Category, error) {
	return q.queryCategories(ctx, listCategoriesByType, arg.UserID, arg.Type)
}

const createCategory = `
INSERT INTO categories (user_id, name, type, color, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	UserID    string
	Name      string
	Type      string
	Color     string
	CreatedAt string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.UserID, arg.Name, arg.Type, arg.Color, arg.CreatedAt, arg.CreatedAt)
	return scanCategory(row)
}

const copyDefaultCategories = `
INSERT INTO categories (user_id, name, type, color, created_at, updated_at)
SELECT ?, name, type, color, ?, ?
FROM categories
WHERE user_id = 'default'
ORDER BY id`

type CopyDefaultCategoriesParams struct {
	UserID    string
	CreatedAt string
}

func (q *Queries) CopyDefaultCategories(ctx context.Context, arg CopyDefaultCategoriesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, copyDefaultCategories, arg.UserID, arg.CreatedAt, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const savingsGoalColumns = `id, user_id, name, target_amount, current_amount, target_date, description, created_at, updated_at`

func scanSavingsGoal(row interface{ Scan(...any) error }) (SavingsGoal, error) {
	var i SavingsGoal
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.TargetAmount,
		&i.CurrentAmount,
		&i.TargetDate,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listSavingsGoals = `
SELECT ` + savingsGoalColumns + ` FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`

func (q *Queries) ListSavingsGoals(ctx context.Context, userID string) ([]SavingsGoal, error) {
	rows, err := q.db.QueryContext(ctx, listSavingsGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SavingsGoal
	for rows.Next() {
		i, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createSavingsGoal = `
INSERT INTO savings_goals (user_id, name, target_amount, current_amount, target_date, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + savingsGoalColumns

type CreateSavingsGoalParams struct {
	UserID        string
	Name          string
	TargetAmount  string
	CurrentAmount string
	TargetDate    sql.NullString
	Description   string
	CreatedAt     string
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, arg CreateSavingsGoalParams) (SavingsGoal, error) {
	row := q.db.QueryRowContext(ctx, createSavingsGoal,
		arg.UserID,
		arg.Name,
		arg.TargetAmount,
		arg.CurrentAmount,
		arg.TargetDate,
		arg.Description,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return scanSavingsGoal(row)
}

const preferencesColumns = `id, user_id, monthly_income, currency, savings_rate, budget_allocation, created_at, updated_at`

const getPreferencesQuery = `
SELECT ` + preferencesColumns + ` FROM user_preferences WHERE user_id = ?`

func (q *Queries) GetPreferences(ctx context.Context, userID string) (UserPreference, error) {
	var i UserPreference
	err := q.db.QueryRowContext(ctx, getPreferencesQuery, userID).Scan(
		&i.ID,
		&i.UserID,
		&i.MonthlyIncome,
		&i.Currency,
		&i.SavingsRate,
		&i.BudgetAllocation,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertPreferencesIfAbsent = `
INSERT INTO user_preferences (user_id, monthly_income, currency, savings_rate, budget_allocation, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`

type InsertPreferencesParams struct {
	UserID           string
	MonthlyIncome    string
	Currency         string
	SavingsRate      float64
	BudgetAllocation string
	CreatedAt        string
}

// InsertPreferencesIfAbsent reports 1 when the row was inserted, 0 when the
// user already had one.
func (q *Queries) InsertPreferencesIfAbsent(ctx context.Context, arg InsertPreferencesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertPreferencesIfAbsent,
		arg.UserID,
		arg.MonthlyIncome,
		arg.Currency,
		arg.SavingsRate,
		arg.BudgetAllocation,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updatePreferences = `
UPDATE user_preferences
SET monthly_income = ?, currency = ?, savings_rate = ?, budget_allocation = ?, updated_at = ?
WHERE user_id = ?`

type UpdatePreferencesParams struct {
	UserID           string
	MonthlyIncome    string
	Currency         string
	SavingsRate      float64
	BudgetAllocation string
	UpdatedAt        string
}

func (q *Queries) UpdatePreferences(ctx context.Context, arg UpdatePreferencesParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePreferences,
		arg.MonthlyIncome,
		arg.Currency,
		arg.SavingsRate,
		arg.BudgetAllocation,
		arg.UpdatedAt,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertUser = `
INSERT INTO users (id, email, name, picture, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    email = excluded.email,
    name = excluded.name,
    picture = excluded.picture,
    updated_at = excluded.updated_at
RETURNING id, email, name, picture, created_at, updated_at`

type UpsertUserParams struct {
	ID        string
	Email     string
	Name      string
	Picture   string
	UpdatedAt string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, upsertUser,
		arg.ID,
		arg.Email,
		arg.Name,
		arg.Picture,
		arg.UpdatedAt,
		arg.UpdatedAt,
	).Scan(&i.ID, &i.Email, &i.Name, &i.Picture, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getUser = `
SELECT id, email, name, picture, created_at, updated_at FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&i.ID, &i.Email, &i.Name, &i.Picture, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createSession = `
INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateSession(ctx context.Context, arg Session) error {
	_, err := q.db.ExecContext(ctx, createSession, arg.ID, arg.UserID, arg.CreatedAt, arg.ExpiresAt)
	return err
}

const getSession = `
SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	var i Session
	err := q.db.QueryRowContext(ctx, getSession, id).Scan(&i.ID, &i.UserID, &i.CreatedAt, &i.ExpiresAt)
	return i, err
}

const deleteSession = `DELETE FROM sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
