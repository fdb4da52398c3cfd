package storage

import (
	"database/sql"
)

// Row shapes as stored in SQLite. Amounts and timestamps are TEXT.

type Transaction struct {
	ID                  int64
	UserID              string
	Type                string
	Amount              string
	Category            string
	Description         string
	IsRecurring         bool
	RecurringInterval   sql.NullString
	TransactionDate     string
	SourceTransactionID sql.NullInt64
	CreatedAt           string
	UpdatedAt           string
}

type Category struct {
	ID        int64
	UserID    string
	Name      string
	Type      string
	Color     string
	CreatedAt string
	UpdatedAt string
}

type SavingsGoal struct {
	ID            int64
	UserID        string
	Name          string
	TargetAmount  string
	CurrentAmount string
	TargetDate    sql.NullString
	Description   string
	CreatedAt     string
	UpdatedAt     string
}

type UserPreference struct {
	ID               int64
	UserID           string
	MonthlyIncome    string
	Currency         string
	SavingsRate      float64
	BudgetAllocation string
	CreatedAt        string
	UpdatedAt        string
}

type User struct {
	ID        string
	Email     string
	Name      string
	Picture   string
	CreatedAt string
	UpdatedAt string
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt string
	ExpiresAt string
}
