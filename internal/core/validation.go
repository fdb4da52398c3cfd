package core

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Money columns are NUMERIC(18,2).
const amountPlaces = 2

var amountLimit = decimal.New(1, 16)

// checkMoney rejects values the money columns would round or overflow.
func checkMoney(d decimal.Decimal) error {
	if !d.Equal(d.Round(amountPlaces)) {
		return ErrTooPrecise
	}
	if d.Abs().GreaterThanOrEqual(amountLimit) {
		return ErrAmountTooLarge
	}
	return nil
}

// FieldError names one rejected field and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects every field problem found in a payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field problem.
func (e *ValidationError) Add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: err.Error()})
}

// Err returns nil when nothing was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type (
	NewTransaction struct {
		Type              TransactionType   `json:"type"`
		Amount            decimal.Decimal   `json:"amount"`
		Category          string            `json:"category"`
		Description       string            `json:"description"`
		IsRecurring       *bool             `json:"is_recurring"`
		RecurringInterval RecurringInterval `json:"recurring_interval"`
		TransactionDate   Date              `json:"transaction_date"`
	}

	NewCategory struct {
		Name  string          `json:"name"`
		Type  TransactionType `json:"type"`
		Color string          `json:"color"`
	}

	NewSavingsGoal struct {
		Name          string           `json:"name"`
		TargetAmount  decimal.Decimal  `json:"target_amount"`
		CurrentAmount *decimal.Decimal `json:"current_amount"`
		TargetDate    *Date            `json:"target_date"`
		Description   string           `json:"description"`
	}

	// PreferencesUpdate holds the fields a PUT may change; nil means untouched.
	PreferencesUpdate struct {
		MonthlyIncome    *decimal.Decimal `json:"monthly_income"`
		Currency         *string          `json:"currency"`
		SavingsRate      *float64         `json:"savings_rate"`
		BudgetAllocation *string          `json:"budget_allocation"`
	}
)

// ApplyDefaults fills optional fields and normalizes text.
func (t *NewTransaction) ApplyDefaults() {
	if t.IsRecurring == nil {
		f := false
		t.IsRecurring = &f
	}
	if !*t.IsRecurring {
		t.RecurringInterval = ""
	}
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
}

// Recurring reports the defaulted is_recurring flag.
func (t NewTransaction) Recurring() bool {
	return t.IsRecurring != nil && *t.IsRecurring
}

func (t NewTransaction) Validate() error {
	ve := &ValidationError{}
	if !t.Type.Valid() {
		ve.Add("type", ErrInvalidType)
	}
	if !t.Amount.IsPositive() {
		ve.Add("amount", ErrInvalidAmount)
	} else if err := checkMoney(t.Amount); err != nil {
		ve.Add("amount", err)
	}
	if t.Category == "" {
		ve.Add("category", ErrRequired)
	} else if len(t.Category) > maxNameLength {
		ve.Add("category", ErrTooLong)
	}
	if len(t.Description) > maxDescriptionLength {
		ve.Add("description", ErrTooLong)
	}
	if t.Recurring() && !t.RecurringInterval.Valid() {
		ve.Add("recurring_interval", ErrInvalidInterval)
	}
	if t.TransactionDate.IsZero() {
		ve.Add("transaction_date", ErrRequired)
	}
	return ve.Err()
}

func (c *NewCategory) ApplyDefaults() {
	c.Name = strings.TrimSpace(c.Name)
	c.Color = strings.TrimSpace(c.Color)
	if c.Color == "" {
		c.Color = DefaultCategoryColor
	}
}

func (c NewCategory) Validate() error {
	ve := &ValidationError{}
	if c.Name == "" {
		ve.Add("name", ErrRequired)
	} else if len(c.Name) > maxNameLength {
		ve.Add("name", ErrTooLong)
	}
	if !c.Type.Valid() {
		ve.Add("type", ErrInvalidType)
	}
	if !hexColor.MatchString(c.Color) {
		ve.Add("color", ErrInvalidColor)
	}
	return ve.Err()
}

func (g *NewSavingsGoal) ApplyDefaults() {
	g.Name = strings.TrimSpace(g.Name)
	g.Description = strings.TrimSpace(g.Description)
	if g.CurrentAmount == nil {
		zero := decimal.Zero
		g.CurrentAmount = &zero
	}
	if g.TargetDate != nil && g.TargetDate.IsZero() {
		g.TargetDate = nil
	}
}

func (g NewSavingsGoal) Validate() error {
	ve := &ValidationError{}
	if g.Name == "" {
		ve.Add("name", ErrRequired)
	} else if len(g.Name) > maxNameLength {
		ve.Add("name", ErrTooLong)
	}
	if !g.TargetAmount.IsPositive() {
		ve.Add("target_amount", ErrInvalidAmount)
	} else if err := checkMoney(g.TargetAmount); err != nil {
		ve.Add("target_amount", err)
	}
	if g.CurrentAmount != nil {
		if g.CurrentAmount.IsNegative() {
			ve.Add("current_amount", ErrNegativeAmount)
		} else if err := checkMoney(*g.CurrentAmount); err != nil {
			ve.Add("current_amount", err)
		}
	}
	if len(g.Description) > maxDescriptionLength {
		ve.Add("description", ErrTooLong)
	}
	return ve.Err()
}

func (p *PreferencesUpdate) ApplyDefaults() {
	if p.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*p.Currency))
		p.Currency = &c
	}
}

// Empty reports whether the update changes nothing.
func (p PreferencesUpdate) Empty() bool {
	return p.MonthlyIncome == nil && p.Currency == nil && p.SavingsRate == nil && p.BudgetAllocation == nil
}

func (p PreferencesUpdate) Validate() error {
	ve := &ValidationError{}
	if p.MonthlyIncome != nil {
		if p.MonthlyIncome.IsNegative() {
			ve.Add("monthly_income", ErrNegativeAmount)
		} else if err := checkMoney(*p.MonthlyIncome); err != nil {
			ve.Add("monthly_income", err)
		}
	}
	if p.Currency != nil && !validCurrency(*p.Currency) {
		ve.Add("currency", ErrInvalidCurrency)
	}
	if p.SavingsRate != nil && (*p.SavingsRate < 0 || *p.SavingsRate > 1) {
		ve.Add("savings_rate", ErrInvalidRate)
	}
	if p.BudgetAllocation != nil {
		if _, err := ParseBudgetAllocation(*p.BudgetAllocation); err != nil {
			ve.Add("budget_allocation", ErrInvalidBudget)
		}
	}
	return ve.Err()
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ParseBudgetAllocation decodes the serialized percentage map.
func ParseBudgetAllocation(s string) (map[string]float64, error) {
	var m map[string]float64
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrInvalidBudget
	}
	for _, v := range m {
		if v < 0 || v > 100 {
			return nil, ErrInvalidBudget
		}
	}
	return m, nil
}
