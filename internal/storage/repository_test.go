package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

const templateCategories = 10

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "financas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// tickingClock advances one second per call so created_at values differ.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTx(typ core.TransactionType, amount string, category string, d core.Date) core.NewTransaction {
	t := core.NewTransaction{
		Type:            typ,
		Amount:          decimal.RequireFromString(amount),
		Category:        category,
		TransactionDate: d,
	}
	t.ApplyDefaults()
	return t
}

func TestTransactionsListedNewestFirstAndPaged(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t).WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	dates := []core.Date{core.NewDate(2025, 1, 5), core.NewDate(2025, 1, 7), core.NewDate(2025, 1, 5), core.NewDate(2025, 1, 1)}
	var created []core.Transaction
	for _, d := range dates {
		tx, err := repo.CreateTransaction(ctx, "u1", newTx(core.Expense, "10.25", "Lazer", d))
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		created = append(created, tx)
	}
	if !created[0].Amount.Equal(decimal.RequireFromString("10.25")) {
		t.Fatalf("amount round trip = %s", created[0].Amount)
	}

	got, err := repo.ListTransactions(ctx, "u1", Page{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	wantOrder := []int64{created[1].ID, created[2].ID, created[0].ID, created[3].ID}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d rows, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("row %d id = %d, want %d", i, got[i].ID, id)
		}
	}

	second, err := repo.ListTransactions(ctx, "u1", Page{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("ListTransactions page 2: %v", err)
	}
	if len(second) != 1 || second[0].ID != created[3].ID {
		t.Fatalf("page 2 = %+v", second)
	}

	beyond, err := repo.ListTransactions(ctx, "u1", Page{Page: math.MaxInt, Limit: 20})
	if err != nil {
		t.Fatalf("ListTransactions huge page: %v", err)
	}
	if len(beyond) != 0 {
		t.Fatalf("huge page returned %d rows, want none", len(beyond))
	}
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Page
		want       Page
		wantOffset int
	}{
		{"zero value", Page{}, Page{Page: 1, Limit: DefaultLimit}, 0},
		{"limit capped", Page{Page: 3, Limit: 500}, Page{Page: 3, Limit: MaxLimit}, 200},
		{"page capped", Page{Page: math.MaxInt, Limit: 20}, Page{Page: MaxPage, Limit: 20}, (MaxPage - 1) * 20},
		{"page capped at max limit", Page{Page: math.MaxInt, Limit: MaxLimit}, Page{Page: MaxPage, Limit: MaxLimit}, (MaxPage - 1) * MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got != tt.want {
				t.Fatalf("Normalize() = %+v, want %+v", got, tt.want)
			}
			if off := got.Offset(); off != tt.wantOffset || off < 0 || off > math.MaxInt32 {
				t.Errorf("Offset() = %d, want %d", off, tt.wantOffset)
			}
		})
	}
}

func TestTransactionsScopedToUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		if _, err := repo.CreateTransaction(ctx, "alice", newTx(core.Income, "100", "Salário", core.NewDate(2025, 2, 1))); err != nil {
			t.Fatalf("create alice: %v", err)
		}
	}
	if _, err := repo.CreateTransaction(ctx, "bob", newTx(core.Expense, "5", "Lazer", core.NewDate(2025, 2, 1))); err != nil {
		t.Fatalf("create bob: %v", err)
	}

	alice, err := repo.ListTransactions(ctx, "alice", Page{})
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	bob, err := repo.ListTransactions(ctx, "bob", Page{})
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(alice) != 3 || len(bob) != 1 {
		t.Fatalf("alice=%d bob=%d", len(alice), len(bob))
	}
	seen := map[int64]bool{}
	for _, tx := range alice {
		if tx.UserID != "alice" {
			t.Errorf("alice listing leaked row of %q", tx.UserID)
		}
		seen[tx.ID] = true
	}
	for _, tx := range bob {
		if tx.UserID != "bob" || seen[tx.ID] {
			t.Errorf("bob listing overlaps alice: %+v", tx)
		}
	}

	between, err := repo.ListTransactionsBetween(ctx, "bob", core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31))
	if err != nil {
		t.Fatalf("ListTransactionsBetween: %v", err)
	}
	if len(between) != 1 {
		t.Fatalf("between = %d rows, want 1", len(between))
	}
}

func TestListTransactionsBetweenBounds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	for _, d := range []core.Date{core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 1), core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 1)} {
		if _, err := repo.CreateTransaction(ctx, "u", newTx(core.Expense, "1", "c", d)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := repo.ListTransactionsBetween(ctx, "u", core.NewDate(2025, 2, 1), core.NewDate(2025, 2, 28))
	if err != nil {
		t.Fatalf("ListTransactionsBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
}

func TestInitializePreferencesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.InitializePreferences(ctx, "new-user")
	if err != nil {
		t.Fatalf("first init: %v", err)
	}
	second, err := repo.InitializePreferences(ctx, "new-user")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("init created two rows: %d and %d", first.ID, second.ID)
	}
	if first.Currency != core.DefaultCurrency || first.SavingsRate != core.DefaultSavingsRate || first.BudgetAllocation != core.DefaultBudgetAllocation {
		t.Fatalf("unexpected defaults: %+v", first)
	}

	cats, err := repo.ListCategories(ctx, "new-user", CategoryFilter{})
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != templateCategories {
		t.Fatalf("got %d categories, want %d", len(cats), templateCategories)
	}
}

func TestInitializePreferencesConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	const callers = 4
	var wg sync.WaitGroup
	ids := make([]int64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := repo.InitializePreferences(ctx, "racer")
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("callers saw different rows: %v", ids)
		}
	}
	cats, err := repo.ListCategories(ctx, "racer", CategoryFilter{})
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != templateCategories {
		t.Fatalf("got %d categories, want exactly one copied set", len(cats))
	}
}

func TestInitializePreferencesKeepsExistingRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.InitializePreferences(ctx, "u"); err != nil {
		t.Fatalf("init: %v", err)
	}
	currency := "EUR"
	if _, err := repo.UpdatePreferences(ctx, "u", core.PreferencesUpdate{Currency: &currency}); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, err := repo.InitializePreferences(ctx, "u")
	if err != nil {
		t.Fatalf("re-init: %v", err)
	}
	if again.Currency != "EUR" {
		t.Fatalf("re-init overwrote preferences: %+v", again)
	}
}

func TestPreferencesNotFoundAndPartialUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetPreferences(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPreferences = %v, want ErrNotFound", err)
	}
	rate := 0.5
	if _, err := repo.UpdatePreferences(ctx, "ghost", core.PreferencesUpdate{SavingsRate: &rate}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdatePreferences = %v, want ErrNotFound", err)
	}

	if _, err := repo.InitializePreferences(ctx, "u"); err != nil {
		t.Fatalf("init: %v", err)
	}
	income := decimal.RequireFromString("150000.50")
	updated, err := repo.UpdatePreferences(ctx, "u", core.PreferencesUpdate{MonthlyIncome: &income})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.MonthlyIncome.Equal(income) {
		t.Errorf("monthly_income = %s", updated.MonthlyIncome)
	}
	if updated.SavingsRate != core.DefaultSavingsRate || updated.Currency != core.DefaultCurrency {
		t.Errorf("partial update touched other fields: %+v", updated)
	}
}

func TestCategoriesFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, c := range []core.NewCategory{
		{Name: "Viagens", Type: core.Expense, Color: "#111111"},
		{Name: "Bónus", Type: core.Income, Color: "#222222"},
		{Name: "Academia", Type: core.Expense, Color: "#333333"},
	} {
		if _, err := repo.CreateCategory(ctx, "u", c); err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
	}
	if _, err := repo.CreateCategory(ctx, "other", core.NewCategory{Name: "Aaa", Type: core.Expense, Color: "#444444"}); err != nil {
		t.Fatalf("CreateCategory other: %v", err)
	}

	expenses, err := repo.ListCategories(ctx, "u", CategoryFilter{Type: core.Expense})
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(expenses) != 2 || expenses[0].Name != "Academia" || expenses[1].Name != "Viagens" {
		t.Fatalf("expense categories = %+v", expenses)
	}
	all, err := repo.ListCategories(ctx, "u", CategoryFilter{})
	if err != nil {
		t.Fatalf("ListCategories all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all categories = %d, want 3", len(all))
	}
}

func TestSavingsGoalsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t).WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	target := core.NewDate(2026, 12, 1)
	for _, name := range []string{"Casa", "Carro"} {
		g := core.NewSavingsGoal{Name: name, TargetAmount: decimal.NewFromInt(1000), TargetDate: &target}
		g.ApplyDefaults()
		if _, err := repo.CreateSavingsGoal(ctx, "u", g); err != nil {
			t.Fatalf("CreateSavingsGoal: %v", err)
		}
	}
	goals, err := repo.ListSavingsGoals(ctx, "u")
	if err != nil {
		t.Fatalf("ListSavingsGoals: %v", err)
	}
	if len(goals) != 2 || goals[0].Name != "Carro" {
		t.Fatalf("goals = %+v", goals)
	}
	if !goals[0].CurrentAmount.IsZero() || goals[0].TargetDate == nil || *goals[0].TargetDate != target {
		t.Fatalf("goal fields = %+v", goals[0])
	}
	if other, _ := repo.ListSavingsGoals(ctx, "someone-else"); len(other) != 0 {
		t.Fatalf("goals leaked across users: %+v", other)
	}
}

func TestSessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRepo(t).WithClock(func() time.Time { return now })

	if _, err := repo.UpsertUser(ctx, core.User{ID: "g-1", Email: "ana@example.com", Name: "Ana"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	renamed, err := repo.UpsertUser(ctx, core.User{ID: "g-1", Email: "ana@example.com", Name: "Ana Maria"})
	if err != nil {
		t.Fatalf("UpsertUser again: %v", err)
	}
	if renamed.Name != "Ana Maria" {
		t.Fatalf("upsert did not update name: %+v", renamed)
	}

	live := core.Session{ID: "s-live", UserID: "g-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := core.Session{ID: "s-stale", UserID: "g-1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, s := range []core.Session{live, stale} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	got, err := repo.GetSession(ctx, "s-live")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "g-1" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("session = %+v", got)
	}

	n, err := repo.DeleteExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredSessions = %d, %v", n, err)
	}
	if err := repo.DeleteSession(ctx, "s-live"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, "s-live"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession after delete = %v, want ErrNotFound", err)
	}
}

func TestCreateOccurrenceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tmpl := newTx(core.Expense, "50", "Moradia", core.NewDate(2025, 1, 10))
	recurring := true
	tmpl.IsRecurring = &recurring
	tmpl.RecurringInterval = core.Monthly
	template, err := repo.CreateTransaction(ctx, "u", tmpl)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	ids, err := repo.ListRecurringUserIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "u" {
		t.Fatalf("ListRecurringUserIDs = %v, %v", ids, err)
	}

	if _, ok, err := repo.LastOccurrenceDate(ctx, "u", template.ID); err != nil || ok {
		t.Fatalf("LastOccurrenceDate before any = ok %v, err %v", ok, err)
	}

	day := core.NewDate(2025, 2, 10)
	created, err := repo.CreateOccurrence(ctx, "u", template, day)
	if err != nil || !created {
		t.Fatalf("first CreateOccurrence = %v, %v", created, err)
	}
	created, err = repo.CreateOccurrence(ctx, "u", template, day)
	if err != nil || created {
		t.Fatalf("second CreateOccurrence = %v, %v", created, err)
	}
	if created, _ := repo.CreateOccurrence(ctx, "intruder", template, core.NewDate(2025, 3, 10)); created {
		t.Fatalf("occurrence created for a user that does not own the template")
	}

	last, ok, err := repo.LastOccurrenceDate(ctx, "u", template.ID)
	if err != nil || !ok || last != day {
		t.Fatalf("LastOccurrenceDate = %s, %v, %v", last, ok, err)
	}

	all, err := repo.ListTransactions(ctx, "u", Page{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d transactions, want template plus one occurrence", len(all))
	}
	occ := all[0]
	if occ.IsRecurring || occ.SourceTransactionID == nil || *occ.SourceTransactionID != template.ID {
		t.Fatalf("occurrence = %+v", occ)
	}
}
