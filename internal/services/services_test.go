package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/storage"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func boolPtr(b bool) *bool { return &b }

func newTx(typ core.TransactionType, amount, category string, date core.Date) core.NewTransaction {
	return core.NewTransaction{
		Type:            typ,
		Amount:          decimal.RequireFromString(amount),
		Category:        category,
		TransactionDate: date,
	}
}

type publishedEvent struct {
	userID      string
	id          int64
	isRecurring bool
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishTransactionCreated(_ context.Context, userID string, id int64, isRecurring bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{userID, id, isRecurring})
	return f.err
}
