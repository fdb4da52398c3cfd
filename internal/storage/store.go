package storage

import (
	"context"
	"errors"
	"math"

	"financas/internal/core"
)

// ErrNotFound indicates a record does not exist for the caller.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps Offset within int32 for every limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Page selects a slice of a newest-first listing.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies the defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	return p
}

// Offset is the number of rows skipped.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// CategoryFilter narrows a category listing; a zero value lists all.
type CategoryFilter struct {
	Type core.TransactionType
}

// Every method takes the owning user id and scopes its query to it.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string, page Page) ([]core.Transaction, error)
		ListTransactionsBetween(ctx context.Context, userID string, from, to core.Date) ([]core.Transaction, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID string, filter CategoryFilter) ([]core.Category, error)
		CreateCategory(ctx context.Context, userID string, c core.NewCategory) (core.Category, error)
	}

	SavingsGoalStore interface {
		ListSavingsGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error)
		CreateSavingsGoal(ctx context.Context, userID string, g core.NewSavingsGoal) (core.SavingsGoal, error)
	}

	PreferencesStore interface {
		GetPreferences(ctx context.Context, userID string) (core.UserPreferences, error)
		UpdatePreferences(ctx context.Context, userID string, u core.PreferencesUpdate) (core.UserPreferences, error)
		// InitializePreferences returns the existing row or seeds a new user.
		// Safe to call concurrently for the same user.
		InitializePreferences(ctx context.Context, userID string) (core.UserPreferences, error)
	}

	UserStore interface {
		UpsertUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, userID string) (core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		GetSession(ctx context.Context, id string) (core.Session, error)
		DeleteSession(ctx context.Context, id string) error
		DeleteExpiredSessions(ctx context.Context) (int64, error)
	}

	RecurrenceStore interface {
		// ListRecurringUserIDs returns the users owning at least one recurring template.
		ListRecurringUserIDs(ctx context.Context) ([]string, error)
		ListRecurringTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		// LastOccurrenceDate returns the newest materialized date of a
		// template, or ok=false when none exist yet.
		LastOccurrenceDate(ctx context.Context, userID string, templateID int64) (core.Date, bool, error)
		// CreateOccurrence inserts the occurrence unless it already exists.
		CreateOccurrence(ctx context.Context, userID string, template core.Transaction, date core.Date) (created bool, err error)
	}

	// Store is the full persistence gateway implemented by each backend.
	Store interface {
		TransactionStore
		CategoryStore
		SavingsGoalStore
		PreferencesStore
		UserStore
		SessionStore
		RecurrenceStore
		Ping(ctx context.Context) error
		Close() error
	}
)
