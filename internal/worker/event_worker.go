package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/events"
	"financas/internal/storage"
)

// Processor materializes recurring transactions.
type Processor interface {
	ProcessUser(ctx context.Context, userID string) (int, error)
	ProcessAll(ctx context.Context) (int, error)
}

// EventWorker reacts to transaction events and runs the scheduled jobs.
type EventWorker struct {
	processor Processor
	sessions  storage.SessionStore
}

func NewEventWorker(processor Processor, sessions storage.SessionStore) *EventWorker {
	return &EventWorker{
		processor: processor,
		sessions:  sessions,
	}
}

// HandleEvent processes a single transaction event from AMQP. Only new
// recurring templates need work: their past-due occurrences are created
// right away instead of waiting for the next scheduled run.
func (w *EventWorker) HandleEvent(ctx context.Context, e *events.Event) error {
	if e.Type != events.TypeTransactionCreated {
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", e.Type)
		return nil
	}
	if !e.IsRecurring {
		return nil
	}

	slog.InfoContext(ctx, "Processing recurring template event",
		"user_id", e.UserID,
		"transaction_id", e.TransactionID)

	created, err := w.processor.ProcessUser(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("process recurring for %s: %w", e.UserID, err)
	}

	slog.InfoContext(ctx, "Recurring template processed",
		"user_id", e.UserID,
		"transaction_id", e.TransactionID,
		"created", created)
	return nil
}

// RunRecurring materializes due occurrences for every user. Also used as
// the startup check so downtime is caught up.
func (w *EventWorker) RunRecurring(ctx context.Context) {
	created, err := w.processor.ProcessAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring processing finished with errors",
			"created", created,
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Recurring processing complete", "created", created)
}

// CleanupSessions deletes expired session rows.
func (w *EventWorker) CleanupSessions(ctx context.Context) {
	n, err := w.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to delete expired sessions", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Deleted expired sessions", "count", n)
	}
}
