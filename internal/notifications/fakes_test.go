package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeMatches serves snapshots from a map and counts lookups.
type fakeMatches struct {
	snapshots map[string]MatchSnapshot
	err       error
	calls     atomic.Int32
}

func (f *fakeMatches) MatchSnapshot(_ context.Context, matchID string) (MatchSnapshot, error) {
	f.calls.Add(1)
	if f.err != nil {
		return MatchSnapshot{}, f.err
	}
	snap, ok := f.snapshots[matchID]
	if !ok {
		return MatchSnapshot{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return snap, nil
}

// subscriptionRow mirrors one user_subscriptions row.
type subscriptionRow struct {
	tournamentID string
	teamID       string
	token        string
}

// fakeSubscriptions evaluates the disjunctive query over in-memory rows.
type fakeSubscriptions struct {
	rows  []subscriptionRow
	err   error
	calls atomic.Int32
}

func (f *fakeSubscriptions) SubscriberTokens(_ context.Context, tournamentID, homeTeamID, awayTeamID string) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, r := range f.rows {
		matchTournament := r.tournamentID != "" && r.tournamentID == tournamentID
		matchTeam := r.teamID != "" && (r.teamID == homeTeamID || r.teamID == awayTeamID)
		if matchTournament || matchTeam {
			out = append(out, r.token)
		}
	}
	return out, nil
}

// fakeCredentials returns a fixed token or error and counts calls.
type fakeCredentials struct {
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeCredentials) Token(context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

// fakeSender records every attempt; fail decides per token.
type fakeSender struct {
	mu       sync.Mutex
	attempts []string
	bearer   []string
	messages []Message
	fail     func(token string) error
}

func (f *fakeSender) Send(_ context.Context, accessToken, deviceToken string, msg Message) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, deviceToken)
	f.bearer = append(f.bearer, accessToken)
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	if f.fail != nil {
		return f.fail(deviceToken)
	}
	return nil
}

func (f *fakeSender) attempted() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.attempts))
	for _, t := range f.attempts {
		out[t] = true
	}
	return out
}

// lionsTigers is the reference match used across tests.
func lionsTigers() MatchSnapshot {
	return MatchSnapshot{
		ID:           "m1",
		TournamentID: "t1",
		HomeTeamID:   "h1",
		AwayTeamID:   "a1",
		HomeTeamName: "Lions",
		AwayTeamName: "Tigers",
		HomeGoals:    2,
		AwayGoals:    1,
		Status:       StatusInProgress,
	}
}

func newFakeMatches(snaps ...MatchSnapshot) *fakeMatches {
	m := &fakeMatches{snapshots: map[string]MatchSnapshot{}}
	for _, s := range snaps {
		m.snapshots[s.ID] = s
	}
	return m
}
