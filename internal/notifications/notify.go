// Package notifications classifies match change events and delivers the
// resulting push notifications to subscribers.
//
// Pipeline: parse envelope → classify → resolve subscriber tokens →
// acquire FCM credential → fan out one send per token → summarise.
// Every step is request-scoped; nothing outlives one Process call.
package notifications

import (
	"context"
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Match statuses referenced by the classifier.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Messages returned for the defined no-op paths.
const (
	MessageIgnoredUpdate = "Ignored match update"
	MessageNothingToSend = "No notification to send"
	MessageNoSubscribers = "No subscribers found"
)

const (
	// kickoffLayout renders "5 Mar, 19:45" for reschedule notices.
	kickoffLayout  = "2 Jan, 15:04"
	tokenPrefixLen = 10
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrSubscriptionQuery = errors.New("subscription query failed")
	ErrCredential        = errors.New("push credential unavailable")
	ErrAmbiguousEnvelope = errors.New("envelope carries both reminder and row-change fields")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// MatchSnapshot is the authoritative view of a match at classification time.
type MatchSnapshot struct {
	ID           string
	TournamentID string
	HomeTeamID   string
	AwayTeamID   string
	HomeTeamName string
	AwayTeamName string
	HomeGoals    int
	AwayGoals    int
	KickoffTime  *time.Time
	Status       string
}

// Intent is the decided notification content plus its routing keys.
// An empty Title means there is nothing to send.
type Intent struct {
	Title        string
	Body         string
	TournamentID string
	HomeTeamID   string
	AwayTeamID   string
	MatchID      string
}

// Empty reports whether the intent is the no-op signal.
func (i Intent) Empty() bool {
	return i.Title == ""
}

// Decision is the classifier's verdict for one envelope.
//
// Ignored marks a match update that matched none of the kickoff, full time or
// reschedule cases. A zero Decision means no rule applied at all.
type Decision struct {
	Rule    string
	Intent  Intent
	Ignored bool
}

// Summary aggregates per-token delivery outcomes.
type Summary struct {
	Sent  int
	Total int
}

// Result is what one engine invocation reports to its caller. Message is set
// only on the no-op paths.
type Result struct {
	Sent    int
	Total   int
	Message string
}

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// MatchLookup fetches a match snapshot. Implementations return
// ErrMatchNotFound when the match does not exist.
type MatchLookup interface {
	MatchSnapshot(ctx context.Context, matchID string) (MatchSnapshot, error)
}

// SubscriptionLookup returns the tokens subscribed to the tournament or to
// either team. Rows may repeat.
type SubscriptionLookup interface {
	SubscriberTokens(ctx context.Context, tournamentID, homeTeamID, awayTeamID string) ([]string, error)
}

// CredentialProvider yields a short-lived bearer token for push delivery.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// Sender performs one delivery to one device token.
type Sender interface {
	Send(ctx context.Context, accessToken, deviceToken string, msg Message) error
}

// Message is the provider-neutral content of one push.
type Message struct {
	Title   string
	Body    string
	MatchID string
}
