package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-push/internal/db"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements MatchLookup and SubscriptionLookup on the prepared
// statements registered by package db.
type Store struct {
	q Querier
}

// NewStore creates a Store. Pass a *pgxpool.Pool in production.
func NewStore(q Querier) *Store {
	return &Store{q: q}
}

// MatchSnapshot returns the match joined with both team names.
func (s *Store) MatchSnapshot(ctx context.Context, matchID string) (MatchSnapshot, error) {
	if matchID == "" {
		return MatchSnapshot{}, fmt.Errorf("%w: empty match id", ErrMatchNotFound)
	}

	var m MatchSnapshot
	err := s.q.QueryRow(ctx, db.StmtMatchSnapshot, matchID).Scan(
		&m.ID, &m.TournamentID, &m.HomeTeamID, &m.AwayTeamID,
		&m.HomeTeamName, &m.AwayTeamName, &m.HomeGoals, &m.AwayGoals,
		&m.KickoffTime, &m.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchSnapshot{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return MatchSnapshot{}, fmt.Errorf("get match %s: %w", matchID, err)
	}
	return m, nil
}

// SubscriberTokens runs the disjunctive subscription query. Empty ids are
// sent as NULL so they never match.
func (s *Store) SubscriberTokens(ctx context.Context, tournamentID, homeTeamID, awayTeamID string) ([]string, error) {
	rows, err := s.q.Query(ctx, db.StmtSubscriberTokens,
		nullable(tournamentID), nullable(homeTeamID), nullable(awayTeamID))
	if err != nil {
		return nil, fmt.Errorf("subscriber tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan subscriber token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
