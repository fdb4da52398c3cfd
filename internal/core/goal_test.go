package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSavingsGoalProgress(t *testing.T) {
	tests := []struct {
		current, target string
		want            float64
	}{
		{"0", "1000", 0},
		{"500", "1000", 50},
		{"1200", "1000", 100},
		{"333.33", "1000", 33.33},
	}
	for _, tt := range tests {
		g := SavingsGoal{CurrentAmount: decimal.RequireFromString(tt.current), TargetAmount: decimal.RequireFromString(tt.target)}
		if got := g.Progress(); got != tt.want {
			t.Errorf("Progress(%s/%s) = %v, want %v", tt.current, tt.target, got, tt.want)
		}
	}
}

func TestSavingsGoalView(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	target := NewDate(2025, 1, 11)
	g := SavingsGoal{
		CurrentAmount: decimal.NewFromInt(1200),
		TargetAmount:  decimal.NewFromInt(1000),
		TargetDate:    &target,
	}
	v := g.View(now)
	if !v.Completed || v.Progress != 100 {
		t.Fatalf("expected completed goal, got %+v", v)
	}
	if !v.RemainingAmount.IsZero() {
		t.Fatalf("remaining = %s, want 0", v.RemainingAmount)
	}
	if v.DaysRemaining == nil || *v.DaysRemaining != 10 {
		t.Fatalf("days remaining = %v, want 10", v.DaysRemaining)
	}

	open := SavingsGoal{CurrentAmount: decimal.Zero, TargetAmount: decimal.NewFromInt(50)}.View(now)
	if open.DaysRemaining != nil || open.Completed {
		t.Fatalf("unexpected view %+v", open)
	}
}

func TestPreferencesViewAndApply(t *testing.T) {
	p := DefaultPreferences("u1")
	income := decimal.NewFromInt(250000)
	rate := 0.3
	p = p.Apply(PreferencesUpdate{MonthlyIncome: &income, SavingsRate: &rate})
	if p.Currency != DefaultCurrency || p.BudgetAllocation != DefaultBudgetAllocation {
		t.Fatalf("untouched fields changed: %+v", p)
	}
	v := p.View()
	if !v.MonthlySavingsTarget.Equal(decimal.NewFromInt(75000)) {
		t.Fatalf("monthly savings target = %s", v.MonthlySavingsTarget)
	}
}
