package storage

import (
	"database/sql"
	"fmt"
	"time"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows seeded by migrations use second precision.
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func toTransaction(row Transaction) (core.Transaction, error) {
	amount, err := parseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(row.TransactionDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", row.TransactionDate, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:                row.ID,
		UserID:            row.UserID,
		Type:              core.TransactionType(row.Type),
		Amount:            amount,
		Category:          row.Category,
		Description:       row.Description,
		IsRecurring:       row.IsRecurring,
		RecurringInterval: core.RecurringInterval(row.RecurringInterval.String),
		TransactionDate:   date,
		CreatedAt:         created,
		UpdatedAt:         updated,
	}
	if row.SourceTransactionID.Valid {
		id := row.SourceTransactionID.Int64
		t.SourceTransactionID = &id
	}
	return t, nil
}

func toTransactions(rows []Transaction) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func toCategory(row Category) (core.Category, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Category{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		Type:      core.TransactionType(row.Type),
		Color:     row.Color,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func toSavingsGoal(row SavingsGoal) (core.SavingsGoal, error) {
	target, err := parseAmount(row.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	current, err := parseAmount(row.CurrentAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	g := core.SavingsGoal{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		TargetAmount:  target,
		CurrentAmount: current,
		Description:   row.Description,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
	if row.TargetDate.Valid {
		d, err := core.ParseDate(row.TargetDate.String)
		if err != nil {
			return core.SavingsGoal{}, fmt.Errorf("parse target date %q: %w", row.TargetDate.String, err)
		}
		g.TargetDate = &d
	}
	return g, nil
}

func toPreferences(row UserPreference) (core.UserPreferences, error) {
	income, err := parseAmount(row.MonthlyIncome)
	if err != nil {
		return core.UserPreferences{}, err
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.UserPreferences{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.UserPreferences{}, err
	}
	return core.UserPreferences{
		ID:               row.ID,
		UserID:           row.UserID,
		MonthlyIncome:    income,
		Currency:         row.Currency,
		SavingsRate:      row.SavingsRate,
		BudgetAllocation: row.BudgetAllocation,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}

func toUser(row User) (core.User, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.User{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.User{}, err
	}
	return core.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Picture:   row.Picture,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
