package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TrendMonths is how many calendar months, current included, the trend covers.
const TrendMonths = 6

// CategoryAmount is the share of current-month expenses spent in one category.
type CategoryAmount struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

// MonthTotals is one point of the income-vs-expenses series.
type MonthTotals struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// DashboardSummary is the dashboard payload.
type DashboardSummary struct {
	TotalIncome       decimal.Decimal  `json:"totalIncome"`
	TotalExpenses     decimal.Decimal  `json:"totalExpenses"`
	TotalSavings      decimal.Decimal  `json:"totalSavings"`
	SavingsRate       float64          `json:"savingsRate"`
	MonthlyGrowth     float64          `json:"monthlyGrowth"`
	CategoryBreakdown []CategoryAmount `json:"categoryBreakdown"`
	IncomeVsExpenses  []MonthTotals    `json:"incomeVsExpenses"`
}

// SummaryWindow returns the first and last day a summary at now reads.
func SummaryWindow(now time.Time) (from, to Date) {
	current := MonthStart(now)
	return AddMonthsClamped(current, -(TrendMonths - 1)), AddMonthsClamped(current, 1).AddDays(-1)
}

// AddDays moves d by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Summarize aggregates one snapshot of a user's transactions. Rows outside
// the summary window are ignored.
func Summarize(txs []Transaction, now time.Time) DashboardSummary {
	from, to := SummaryWindow(now)
	currentKey := MonthStart(now).MonthKey()
	previousKey := AddMonthsClamped(MonthStart(now), -1).MonthKey()

	months := make(map[string]*MonthTotals)
	byCategory := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		d := tx.TransactionDate
		if d.Before(from.Time) || d.After(to.Time) {
			continue
		}
		key := d.MonthKey()
		m, ok := months[key]
		if !ok {
			m = &MonthTotals{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			months[key] = m
		}
		switch tx.Type {
		case Income:
			m.Income = m.Income.Add(tx.Amount)
		case Expense:
			m.Expenses = m.Expenses.Add(tx.Amount)
			if key == currentKey {
				byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			}
		}
	}

	s := DashboardSummary{
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		CategoryBreakdown: []CategoryAmount{},
		IncomeVsExpenses:  make([]MonthTotals, 0, len(months)),
	}
	if cur, ok := months[currentKey]; ok {
		s.TotalIncome = cur.Income
		s.TotalExpenses = cur.Expenses
	}
	s.TotalSavings = s.TotalIncome.Sub(s.TotalExpenses)
	s.SavingsRate = ClampPercent(Percent(s.TotalSavings, s.TotalIncome))

	for name, amount := range byCategory {
		s.CategoryBreakdown = append(s.CategoryBreakdown, CategoryAmount{
			Category:   name,
			Amount:     amount,
			Percentage: Percent(amount, s.TotalExpenses),
		})
	}
	sort.Slice(s.CategoryBreakdown, func(i, j int) bool {
		a, b := s.CategoryBreakdown[i], s.CategoryBreakdown[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})

	for _, m := range months {
		s.IncomeVsExpenses = append(s.IncomeVsExpenses, *m)
	}
	sort.Slice(s.IncomeVsExpenses, func(i, j int) bool {
		return s.IncomeVsExpenses[i].Month < s.IncomeVsExpenses[j].Month
	})

	prevSavings := decimal.Zero
	if prev, ok := months[previousKey]; ok {
		prevSavings = prev.Income.Sub(prev.Expenses)
	}
	if prevSavings.IsPositive() {
		s.MonthlyGrowth = s.TotalSavings.Sub(prevSavings).Mul(hundred).Div(prevSavings).Round(2).InexactFloat64()
	}
	return s
}
