package services

import (
	"context"
	"testing"
	"time"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

func TestDashboardService_Summary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := NewDashboardService(repo).WithClock(fixedClock(now))

	seed := []core.NewTransaction{
		newTx(core.Income, "1000", "Salário", core.NewDate(2024, 3, 1)),
		newTx(core.Expense, "300", "Moradia", core.NewDate(2024, 3, 2)),
		newTx(core.Expense, "100", "Lazer", core.NewDate(2024, 3, 5)),
		newTx(core.Income, "800", "Salário", core.NewDate(2024, 2, 1)),
		newTx(core.Expense, "400", "Moradia", core.NewDate(2024, 2, 3)),
		// outside the six-month window
		newTx(core.Income, "999", "Salário", core.NewDate(2023, 9, 30)),
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, "u1", tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := repo.CreateTransaction(ctx, "u2", newTx(core.Expense, "5000", "Lazer", core.NewDate(2024, 3, 3))); err != nil {
		t.Fatalf("seed other user: %v", err)
	}

	got, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if !got.TotalIncome.Equal(decimal.NewFromInt(1000)) || !got.TotalExpenses.Equal(decimal.NewFromInt(400)) {
		t.Errorf("totals = %s/%s, want 1000/400", got.TotalIncome, got.TotalExpenses)
	}
	if !got.TotalSavings.Equal(decimal.NewFromInt(600)) {
		t.Errorf("TotalSavings = %s, want 600", got.TotalSavings)
	}
	if got.SavingsRate != 60 {
		t.Errorf("SavingsRate = %v, want 60", got.SavingsRate)
	}
	if got.MonthlyGrowth != 50 {
		t.Errorf("MonthlyGrowth = %v, want 50", got.MonthlyGrowth)
	}
	if len(got.CategoryBreakdown) != 2 || got.CategoryBreakdown[0].Category != "Moradia" || got.CategoryBreakdown[0].Percentage != 75 {
		t.Errorf("CategoryBreakdown = %+v", got.CategoryBreakdown)
	}
	if len(got.IncomeVsExpenses) != 2 || got.IncomeVsExpenses[0].Month != "2024-02" {
		t.Errorf("IncomeVsExpenses = %+v", got.IncomeVsExpenses)
	}
}
