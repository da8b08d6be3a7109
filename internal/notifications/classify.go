package notifications

import (
	"context"
	"fmt"
	"time"
)

// Rule and sub-case names reported in Decision.Rule.
const (
	RuleGoal       = "goal"
	RuleKickoff    = "kickoff"
	RuleFullTime   = "full_time"
	RuleReschedule = "reschedule"
	RuleIgnored    = "match_update_ignored"
	RuleReminder   = "reminder"
)

// rule is one entry of the classifier's precedence table. applies must not
// touch the store; build receives the snapshot fetched for the winning rule.
type rule struct {
	name    string
	applies func(env Envelope) bool
	build   func(env Envelope, snap MatchSnapshot, loc *time.Location) Decision
}

// rules is evaluated top to bottom; the first rule that applies wins.
var rules = []rule{
	{
		name: RuleGoal,
		applies: func(env Envelope) bool {
			ins, ok := env.(MatchEventInsert)
			return ok && ins.EventType == "goal"
		},
		build: func(_ Envelope, snap MatchSnapshot, _ *time.Location) Decision {
			body := fmt.Sprintf("%s %d - %d %s",
				snap.HomeTeamName, snap.HomeGoals, snap.AwayGoals, snap.AwayTeamName)
			return Decision{Rule: RuleGoal, Intent: intentFor(snap, "GGGOOOAAALLL!!! ⚽", body)}
		},
	},
	{
		name: "match_update",
		applies: func(env Envelope) bool {
			_, ok := env.(MatchUpdate)
			return ok
		},
		build: func(env Envelope, snap MatchSnapshot, loc *time.Location) Decision {
			return classifyUpdate(env.(MatchUpdate), snap, loc)
		},
	},
	{
		name: RuleReminder,
		applies: func(env Envelope) bool {
			_, ok := env.(Reminder)
			return ok
		},
		build: func(_ Envelope, snap MatchSnapshot, _ *time.Location) Decision {
			body := fmt.Sprintf("%s vs %s starts in 1 hour!", snap.HomeTeamName, snap.AwayTeamName)
			return Decision{Rule: RuleReminder, Intent: intentFor(snap, "MATCH STARTING SOON! 🔔", body)}
		},
	},
}

// updateCase is one of the mutually exclusive match update sub-cases.
type updateCase struct {
	name   string
	when   func(u MatchUpdate) bool
	render func(u MatchUpdate, snap MatchSnapshot, loc *time.Location) (title, body string)
}

var updateCases = []updateCase{
	{
		name: RuleKickoff,
		when: func(u MatchUpdate) bool {
			return u.OldStatus == StatusScheduled && u.NewStatus == StatusInProgress
		},
		render: func(_ MatchUpdate, snap MatchSnapshot, _ *time.Location) (string, string) {
			return "KICK OFF! ⚔️", fmt.Sprintf("%s vs %s has started!", snap.HomeTeamName, snap.AwayTeamName)
		},
	},
	{
		// Goals come from the update itself, not the snapshot.
		name: RuleFullTime,
		when: func(u MatchUpdate) bool {
			return u.OldStatus == StatusInProgress && u.NewStatus == StatusFinished
		},
		render: func(u MatchUpdate, snap MatchSnapshot, _ *time.Location) (string, string) {
			return "FULL TIME 🏁", fmt.Sprintf("Finished: %s %d - %d %s",
				snap.HomeTeamName, u.HomeGoals, u.AwayGoals, snap.AwayTeamName)
		},
	},
	{
		name: RuleReschedule,
		when: func(u MatchUpdate) bool {
			return !sameInstant(u.OldKickoff, u.NewKickoff)
		},
		render: func(u MatchUpdate, snap MatchSnapshot, loc *time.Location) (string, string) {
			return "SCHEDULE UPDATE 📅", fmt.Sprintf("%s vs %s has been moved to %s",
				snap.HomeTeamName, snap.AwayTeamName, FormatKickoff(u.NewKickoff, loc))
		},
	},
}

// Classify decides what, if anything, to send for env. At most one match
// lookup is issued, and only when a rule applies. A nil loc renders times in
// UTC.
func Classify(ctx context.Context, env Envelope, matches MatchLookup, loc *time.Location) (Decision, error) {
	if env == nil {
		return Decision{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, r := range rules {
		if !r.applies(env) {
			continue
		}
		snap, err := matches.MatchSnapshot(ctx, env.TargetMatch())
		if err != nil {
			return Decision{}, fmt.Errorf("classify %s: %w", r.name, err)
		}
		return r.build(env, snap, loc), nil
	}
	return Decision{}, nil
}

func classifyUpdate(u MatchUpdate, snap MatchSnapshot, loc *time.Location) Decision {
	for _, c := range updateCases {
		if !c.when(u) {
			continue
		}
		title, body := c.render(u, snap, loc)
		return Decision{Rule: c.name, Intent: intentFor(snap, title, body)}
	}
	return Decision{Rule: RuleIgnored, Ignored: true}
}

func intentFor(snap MatchSnapshot, title, body string) Intent {
	return Intent{
		Title:        title,
		Body:         body,
		TournamentID: snap.TournamentID,
		HomeTeamID:   snap.HomeTeamID,
		AwayTeamID:   snap.AwayTeamID,
		MatchID:      snap.ID,
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// FormatKickoff renders a kickoff as "5 Mar, 19:45" in loc, or "TBC" when the
// kickoff was cleared.
func FormatKickoff(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "TBC"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(kickoffLayout)
}
