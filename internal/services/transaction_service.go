package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/storage"
)

// EventPublisher announces stored transactions to other processes.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, userID string, transactionID int64, isRecurring bool) error
}

// TransactionService validates and stores transactions, then publishes an
// event. Publishing is best effort: the stored row is the source of truth.
type TransactionService struct {
	store     storage.TransactionStore
	publisher EventPublisher
}

// NewTransactionService creates the service; publisher may be nil.
func NewTransactionService(store storage.TransactionStore, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// CreateTransaction applies defaults, validates and persists t for userID.
// Invalid input returns a *core.ValidationError and writes nothing.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, userID, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", created.ID,
			"user_id", userID,
			"error", err)
	}

	return created, nil
}

func (s *TransactionService) publish(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, t.UserID, t.ID, t.IsRecurring)
}

// ListTransactions returns one page of the user's transactions, newest first.
func (s *TransactionService) ListTransactions(ctx context.Context, userID string, page storage.Page) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID, page.Normalize())
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}
