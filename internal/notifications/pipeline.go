package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-push/internal/metrics"
)

// Deps are the collaborators an Engine needs. Location controls how
// reschedule times are rendered; nil means UTC.
type Deps struct {
	Matches     MatchLookup
	Subscribers SubscriptionLookup
	Credentials CredentialProvider
	Sender      Sender
	Location    *time.Location
	Logger      *slog.Logger
}

// Engine runs one envelope at a time through classify → resolve → dispatch.
// It holds no per-invocation state and is safe for concurrent use.
type Engine struct {
	matches     MatchLookup
	subscribers SubscriptionLookup
	credentials CredentialProvider
	sender      Sender
	location    *time.Location
	logger      *slog.Logger
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		matches:     d.Matches,
		subscribers: d.Subscribers,
		credentials: d.Credentials,
		sender:      d.Sender,
		location:    loc,
		logger:      logger,
	}
}

// ProcessPayload parses a raw webhook or NOTIFY payload and processes it.
func (e *Engine) ProcessPayload(ctx context.Context, raw []byte) (Result, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		metrics.Invocations.WithLabelValues("invalid", "error").Inc()
		return Result{}, err
	}
	return e.Process(ctx, env)
}

// Process classifies env, resolves its subscribers and dispatches the push.
// Any error other than a per-token send failure is returned as-is; the
// no-op paths come back as a Result with Message set.
func (e *Engine) Process(ctx context.Context, env Envelope) (Result, error) {
	if env == nil {
		return Result{Message: MessageNothingToSend}, nil
	}
	kind := env.Kind()
	logger := e.logger.With(
		"invocation", uuid.NewString(),
		"kind", kind,
		"match_id", env.TargetMatch(),
	)

	decision, err := Classify(ctx, env, e.matches, e.location)
	if err != nil {
		return e.fail(logger, kind, "Classification failed", err)
	}
	if decision.Rule != "" {
		metrics.Classifications.WithLabelValues(decision.Rule).Inc()
	}

	if decision.Ignored {
		logger.Info("Match update ignored")
		metrics.Invocations.WithLabelValues(kind, "ignored").Inc()
		return Result{Message: MessageIgnoredUpdate}, nil
	}
	if decision.Intent.Empty() {
		logger.Info("Skipping: no notification for this event")
		metrics.Invocations.WithLabelValues(kind, "nothing_to_send").Inc()
		return Result{Message: MessageNothingToSend}, nil
	}

	intent := decision.Intent
	logger.Info("Notification ready",
		"rule", decision.Rule, "title", intent.Title, "body", intent.Body)

	logger.Info("Querying subscribers",
		"tournament_id", intent.TournamentID,
		"home_team_id", intent.HomeTeamID,
		"away_team_id", intent.AwayTeamID)
	tokens, err := ResolveTokens(ctx, intent, e.subscribers)
	if err != nil {
		return e.fail(logger, kind, "Subscriber lookup failed", err)
	}
	logger.Info("Resolved subscriber tokens", "unique", len(tokens))

	if len(tokens) == 0 {
		metrics.Invocations.WithLabelValues(kind, "no_subscribers").Inc()
		return Result{Message: MessageNoSubscribers}, nil
	}

	summary, err := Dispatch(ctx, intent, tokens, e.credentials, e.sender, logger)
	if err != nil {
		return e.fail(logger, kind, "Dispatch failed", err)
	}

	logger.Info("Notification dispatch finished",
		"sent", summary.Sent, "total", summary.Total)
	metrics.Invocations.WithLabelValues(kind, "sent").Inc()
	return Result{Sent: summary.Sent, Total: summary.Total}, nil
}

func (e *Engine) fail(logger *slog.Logger, kind, msg string, err error) (Result, error) {
	logger.Error(msg, "error", err)
	metrics.Invocations.WithLabelValues(kind, "error").Inc()
	return Result{}, err
}
