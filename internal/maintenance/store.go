package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-push/internal/db"
	"github.com/albapepper/scoracle-push/internal/metrics"
)

// Querier is the subset of *pgxpool.Pool the reminder store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReminderStore claims due reminders with the claim_due_reminders prepared
// statement. Concurrent sweepers never claim the same match.
type ReminderStore struct {
	q Querier
}

// NewReminderStore creates a ReminderStore. Pass a *pgxpool.Pool in production.
func NewReminderStore(q Querier) *ReminderStore {
	return &ReminderStore{q: q}
}

// ClaimDueReminders implements Claimer.
func (s *ReminderStore) ClaimDueReminders(ctx context.Context, lead, window time.Duration) ([]string, error) {
	rows, err := s.q.Query(ctx, db.StmtClaimReminders, lead, window)
	if err != nil {
		return nil, fmt.Errorf("claim reminders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan claimed reminders: %w", err)
	}
	metrics.RemindersClaimed.Add(float64(len(ids)))
	return ids, nil
}
