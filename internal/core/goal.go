package core

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// GoalView is a savings goal with its derived progress fields.
type GoalView struct {
	SavingsGoal
	Progress        float64         `json:"progress"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	DaysRemaining   *int            `json:"days_remaining,omitempty"`
	Completed       bool            `json:"completed"`
}

// Progress is current/target as a percentage clamped to [0,100].
func (g SavingsGoal) Progress() float64 {
	return ClampPercent(Percent(g.CurrentAmount, g.TargetAmount))
}

// Remaining is how much is still missing, never negative.
func (g SavingsGoal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// View derives the display fields relative to now.
func (g SavingsGoal) View(now time.Time) GoalView {
	v := GoalView{
		SavingsGoal:     g,
		Progress:        g.Progress(),
		RemainingAmount: g.Remaining(),
	}
	v.Completed = v.Progress >= 100
	if g.TargetDate != nil && !g.TargetDate.IsZero() {
		days := int(math.Ceil(g.TargetDate.Sub(now).Hours() / 24))
		v.DaysRemaining = &days
	}
	return v
}

// PreferencesView adds the monthly savings target to the stored row.
type PreferencesView struct {
	UserPreferences
	MonthlySavingsTarget decimal.Decimal `json:"monthly_savings_target"`
}

func (p UserPreferences) View() PreferencesView {
	return PreferencesView{
		UserPreferences:      p,
		MonthlySavingsTarget: p.MonthlyIncome.Mul(decimal.NewFromFloat(p.SavingsRate)).Round(2),
	}
}

// DefaultPreferences returns the row inserted on first login.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:           userID,
		MonthlyIncome:    decimal.Zero,
		Currency:         DefaultCurrency,
		SavingsRate:      DefaultSavingsRate,
		BudgetAllocation: DefaultBudgetAllocation,
	}
}

// Apply merges a validated update into p.
func (p UserPreferences) Apply(u PreferencesUpdate) UserPreferences {
	if u.MonthlyIncome != nil {
		p.MonthlyIncome = *u.MonthlyIncome
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.SavingsRate != nil {
		p.SavingsRate = *u.SavingsRate
	}
	if u.BudgetAllocation != nil {
		p.BudgetAllocation = *u.BudgetAllocation
	}
	return p
}
