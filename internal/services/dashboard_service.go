package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	"financas/internal/storage"
)

// DashboardService builds the dashboard from a single transaction snapshot.
type DashboardService struct {
	store storage.TransactionStore
	now   func() time.Time
}

func NewDashboardService(store storage.TransactionStore) *DashboardService {
	return &DashboardService{store: store, now: time.Now}
}

// WithClock replaces the time source.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Summary loads the trend window for userID and aggregates it.
func (s *DashboardService) Summary(ctx context.Context, userID string) (core.DashboardSummary, error) {
	now := s.now()
	from, to := core.SummaryWindow(now)

	txs, err := s.store.ListTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load dashboard snapshot: %w", err)
	}

	summary := core.Summarize(txs, now)
	slog.DebugContext(ctx, "Dashboard computed",
		"user_id", userID,
		"transactions", len(txs),
		"window_from", from.String(),
		"window_to", to.String())

	return summary, nil
}
