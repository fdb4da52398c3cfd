package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Daily   RecurringInterval = "daily"
	Weekly  RecurringInterval = "weekly"
	Monthly RecurringInterval = "monthly"
	Yearly  RecurringInterval = "yearly"
)

// DefaultUserID owns the template categories copied to every new user.
const DefaultUserID = "default"

const (
	DefaultCategoryColor = "#6366f1"
	DefaultCurrency      = "AOA"
	DefaultSavingsRate   = 0.2
	// DefaultBudgetAllocation is stored verbatim on first login.
	DefaultBudgetAllocation = `{"alimentação": 30, "transporte": 20, "lazer": 15, "poupança": 20, "outros": 15}`
)

type (
	TransactionType   string
	RecurringInterval string

	Transaction struct {
		ID                  int64             `json:"id"`
		UserID              string            `json:"user_id"`
		Type                TransactionType   `json:"type"`
		Amount              decimal.Decimal   `json:"amount"`
		Category            string            `json:"category"`
		Description         string            `json:"description,omitempty"`
		IsRecurring         bool              `json:"is_recurring"`
		RecurringInterval   RecurringInterval `json:"recurring_interval,omitempty"`
		TransactionDate     Date              `json:"transaction_date"`
		SourceTransactionID *int64            `json:"source_transaction_id,omitempty"`
		CreatedAt           time.Time         `json:"created_at"`
		UpdatedAt           time.Time         `json:"updated_at"`
	}

	Category struct {
		ID        int64           `json:"id"`
		UserID    string          `json:"user_id"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		Color     string          `json:"color"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}

	SavingsGoal struct {
		ID            int64           `json:"id"`
		UserID        string          `json:"user_id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		TargetDate    *Date           `json:"target_date,omitempty"`
		Description   string          `json:"description,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	UserPreferences struct {
		ID               int64           `json:"id"`
		UserID           string          `json:"user_id"`
		MonthlyIncome    decimal.Decimal `json:"monthly_income"`
		Currency         string          `json:"currency"`
		SavingsRate      float64         `json:"savings_rate"`
		BudgetAllocation string          `json:"budget_allocation"`
		CreatedAt        time.Time       `json:"created_at"`
		UpdatedAt        time.Time       `json:"updated_at"`
	}

	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name,omitempty"`
		Picture   string    `json:"picture,omitempty"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Session struct {
		ID        string
		UserID    string
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("must be greater than zero")
	ErrNegativeAmount  = errors.New("must not be negative")
	ErrInvalidType     = errors.New("must be income or expense")
	ErrInvalidInterval = errors.New("must be daily, weekly, monthly or yearly")
	ErrRequired        = errors.New("is required")
	ErrInvalidRate     = errors.New("must be between 0 and 1")
	ErrInvalidCurrency = errors.New("must be a 3-letter currency code")
	ErrInvalidColor    = errors.New("must be a hex color like #6366f1")
	ErrInvalidBudget   = errors.New("must be a JSON object of percentages between 0 and 100")
	ErrTooLong         = errors.New("is too long")
	ErrTooPrecise      = errors.New("must have at most 2 decimal places")
	ErrAmountTooLarge  = errors.New("must be less than 10^16")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (i RecurringInterval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// ParseTransactionType accepts the wire value of a transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Expired reports whether the session can no longer be used at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
