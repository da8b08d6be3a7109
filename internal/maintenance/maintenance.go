// Package maintenance runs the periodic reminder sweep on a cron schedule.
// The service is already long-running (webhook server, LISTEN/NOTIFY), so
// scheduled work is driven from Go rather than pg_cron.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/albapepper/scoracle-push/internal/notifications"
)

// Config controls the reminder sweep. A match is due when its kickoff falls
// within Window of now+Lead.
type Config struct {
	Schedule string // five-field cron expression or descriptor such as @every 1m
	Lead     time.Duration
	Window   time.Duration
	Location *time.Location
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Schedule: "* * * * *",
		Lead:     time.Hour,
		Window:   time.Minute,
		Location: time.UTC,
	}
}

// Claimer marks due matches as reminded and returns their ids. A claimed
// match is never returned again.
type Claimer interface {
	ClaimDueReminders(ctx context.Context, lead, window time.Duration) ([]string, error)
}

// Processor runs one envelope through the notification engine.
type Processor interface {
	Process(ctx context.Context, env notifications.Envelope) (notifications.Result, error)
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Claimed int
	Sent    int
	Failed  int
}

// Start schedules the reminder sweep and blocks until ctx is cancelled.
// Intended to be called with `go`. Overlapping runs are skipped.
func Start(ctx context.Context, claimer Claimer, proc Processor, cfg Config, logger *slog.Logger) error {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := c.AddFunc(cfg.Schedule, func() {
		if _, err := SweepReminders(ctx, claimer, proc, cfg, logger); err != nil {
			logger.Warn("Reminder sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder sweep %q: %w", cfg.Schedule, err)
	}

	c.Start()
	logger.Info("Reminder sweep scheduled",
		"schedule", cfg.Schedule, "lead", cfg.Lead, "window", cfg.Window)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Reminder sweep stopped")
	return nil
}

// SweepReminders claims every match due for a reminder and runs a Reminder
// envelope for each. A failing match is logged and the sweep continues.
func SweepReminders(ctx context.Context, claimer Claimer, proc Processor, cfg Config, logger *slog.Logger) (SweepResult, error) {
	ids, err := claimer.ClaimDueReminders(ctx, cfg.Lead, cfg.Window)
	if err != nil {
		return SweepResult{}, fmt.Errorf("claim due reminders: %w", err)
	}

	res := SweepResult{Claimed: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}
	logger.Info("Reminder sweep claimed matches", "count", len(ids))

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		result, err := proc.Process(ctx, notifications.Reminder{MatchID: id})
		if err != nil {
			res.Failed++
			logger.Warn("Reminder failed", "match_id", id, "error", err)
			continue
		}
		res.Sent += result.Sent
	}

	logger.Info("Reminder sweep finished",
		"claimed", res.Claimed, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
