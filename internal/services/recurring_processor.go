package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)

// maxOccurrencesPerRun bounds the catch-up work for one template.
const maxOccurrencesPerRun = 400

// RecurringProcessor materializes due occurrences of recurring templates
// as plain transactions linked by source_transaction_id.
type RecurringProcessor struct {
	store storage.RecurrenceStore
	now   func() time.Time
}

func NewRecurringProcessor(store storage.RecurrenceStore) *RecurringProcessor {
	return &RecurringProcessor{store: store, now: time.Now}
}

// WithClock replaces the time source.
func (p *RecurringProcessor) WithClock(now func() time.Time) *RecurringProcessor {
	p.now = now
	return p
}

// ProcessAll runs ProcessUser for every user owning a template. A failing
// user is logged and skipped.
func (p *RecurringProcessor) ProcessAll(ctx context.Context) (int, error) {
	userIDs, err := p.store.ListRecurringUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring users: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"users", len(userIDs),
		"processing_date", core.DateOf(p.now()).String())

	total := 0
	var errs []error
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.ProcessUser(ctx, userID)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"created", total,
		"users", len(userIDs),
		"failed_users", len(errs))

	return total, errors.Join(errs...)
}

// ProcessUser creates every due occurrence for userID's templates and
// returns how many rows were inserted. Re-running is a no-op.
func (p *RecurringProcessor) ProcessUser(ctx context.Context, userID string) (int, error) {
	templates, err := p.store.ListRecurringTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions for %s: %w", userID, err)
	}

	today := core.DateOf(p.now())
	created := 0
	var errs []error

	for _, tmpl := range templates {
		n, err := p.processTemplate(ctx, userID, tmpl, today)
		created += n
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring transaction",
				"template_id", tmpl.ID,
				"user_id", userID,
				"error", err)
			errs = append(errs, err)
		}
	}

	if created > 0 {
		slog.InfoContext(ctx, "Created recurring occurrences",
			"user_id", userID,
			"created", created)
	}

	return created, errors.Join(errs...)
}

func (p *RecurringProcessor) processTemplate(ctx context.Context, userID string, tmpl core.Transaction, today core.Date) (int, error) {
	schedule, err := GetSchedule(tmpl.RecurringInterval)
	if err != nil {
		return 0, err
	}

	last, ok, err := p.store.LastOccurrenceDate(ctx, userID, tmpl.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		last = tmpl.TransactionDate
	}

	created := 0
	for _, date := range DueOccurrences(schedule, tmpl.TransactionDate, last, today, maxOccurrencesPerRun) {
		inserted, err := p.store.CreateOccurrence(ctx, userID, tmpl, date)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}
