package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/storage"

	"github.com/shopspring/decimal"
)

// Set FINANCAS_POSTGRES_TEST_URL to run against a disposable database.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("FINANCAS_POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("set FINANCAS_POSTGRES_TEST_URL to run postgres integration tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, url)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func uniqueUser(t *testing.T, prefix string) string {
	return fmt.Sprintf("%s-%s-%d", prefix, t.Name(), time.Now().UnixNano())
}

func TestPostgresInitializePreferencesConcurrent(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	user := uniqueUser(t, "init")

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.InitializePreferences(ctx, user); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("InitializePreferences: %v", err)
	}

	template, err := store.ListCategories(ctx, core.DefaultUserID, storage.CategoryFilter{})
	if err != nil {
		t.Fatalf("list template: %v", err)
	}
	cats, err := store.ListCategories(ctx, user, storage.CategoryFilter{})
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != len(template) {
		t.Fatalf("got %d categories, want %d", len(cats), len(template))
	}
}

func TestPostgresTransactionsScopedToUser(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	alice, bob := uniqueUser(t, "alice"), uniqueUser(t, "bob")

	nt := core.NewTransaction{Type: core.Expense, Amount: decimal.RequireFromString("19.99"), Category: "Lazer", TransactionDate: core.NewDate(2025, 4, 2)}
	nt.ApplyDefaults()
	created, err := store.CreateTransaction(ctx, alice, nt)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if !created.Amount.Equal(nt.Amount) || created.TransactionDate != nt.TransactionDate {
		t.Fatalf("round trip = %+v", created)
	}

	got, err := store.ListTransactions(ctx, bob, storage.Page{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("bob sees %d of alice's rows", len(got))
	}
	if _, err := store.GetPreferences(ctx, bob); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetPreferences = %v, want ErrNotFound", err)
	}
}
