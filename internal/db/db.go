// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-push/internal/config"
)

// Prepared statement names shared with the packages that query them.
const (
	StmtHealthCheck      = "health_check"
	StmtMatchSnapshot    = "match_snapshot"
	StmtSubscriberTokens = "subscriber_tokens"
	StmtClaimReminders   = "claim_due_reminders"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, StmtHealthCheck).Scan(&n)
}

// Statements returns the SQL registered on every pooled connection, keyed by
// statement name.
func Statements() map[string]string {
	return map[string]string{
		StmtHealthCheck: "SELECT 1",

		// Match snapshot joined with both team names. IDs are cast to text so
		// callers stay agnostic of uuid vs bigint keys.
		StmtMatchSnapshot: fmt.Sprintf(`
			SELECT m.id::text,
			       COALESCE(m.tournament_id::text, ''),
			       m.home_team_id::text,
			       m.away_team_id::text,
			       ht.name,
			       awt.name,
			       COALESCE(m.home_goals, 0),
			       COALESCE(m.away_goals, 0),
			       m.kickoff_time,
			       COALESCE(m.status, '')
			FROM %s m
			JOIN %s ht ON ht.id = m.home_team_id
			JOIN %s awt ON awt.id = m.away_team_id
			WHERE m.id = $1`,
			config.MatchesTable, config.TeamsTable, config.TeamsTable),

		// One disjunctive query: tournament OR home team OR away team.
		StmtSubscriberTokens: fmt.Sprintf(`
			SELECT fcm_token
			FROM %s
			WHERE fcm_token IS NOT NULL
			  AND (tournament_id = $1 OR team_id = $2 OR team_id = $3)`,
			config.SubscriptionsTable),

		// Claims scheduled matches entering the reminder window. SKIP LOCKED
		// keeps concurrent sweepers from claiming the same match.
		StmtClaimReminders: fmt.Sprintf(`
			UPDATE %s
			SET reminder_sent_at = NOW()
			WHERE id IN (
				SELECT id FROM %s
				WHERE status = 'scheduled'
				  AND reminder_sent_at IS NULL
				  AND kickoff_time >  NOW() + $1::interval - $2::interval
				  AND kickoff_time <= NOW() + $1::interval + $2::interval
				ORDER BY kickoff_time
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id::text`,
			config.MatchesTable, config.MatchesTable),
	}
}

// registerPreparedStatements registers all statements the webhook, listener
// and reminder sweep use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements() {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
