package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/albapepper/scoracle-push/internal/config"
)

// Envelope is one inbound change event. The concrete variants are
// MatchEventInsert, MatchUpdate, Reminder and Unclassified.
type Envelope interface {
	// Kind names the variant for logs and metrics.
	Kind() string
	// TargetMatch is the match the event refers to, if any.
	TargetMatch() string
}

// MatchEventInsert is a row inserted into match_events.
type MatchEventInsert struct {
	EventType string
	MatchID   string
}

// MatchUpdate is an UPDATE on matches, carrying the before/after fields the
// classifier compares.
type MatchUpdate struct {
	MatchID    string
	OldStatus  string
	NewStatus  string
	OldKickoff *time.Time
	NewKickoff *time.Time
	HomeGoals  int
	AwayGoals  int
}

// Reminder is the synthetic "match starts soon" event.
type Reminder struct {
	MatchID string
}

// Unclassified is a well-formed row change that no rule handles.
type Unclassified struct {
	Table string
	Type  string
}

func (MatchEventInsert) Kind() string { return "match_event_insert" }
func (MatchUpdate) Kind() string      { return "match_update" }
func (Reminder) Kind() string         { return "reminder" }
func (Unclassified) Kind() string     { return "unclassified" }

func (e MatchEventInsert) TargetMatch() string { return e.MatchID }
func (e MatchUpdate) TargetMatch() string      { return e.MatchID }
func (e Reminder) TargetMatch() string         { return e.MatchID }
func (Unclassified) TargetMatch() string       { return "" }

// --------------------------------------------------------------------------
// Wire format
// --------------------------------------------------------------------------

const (
	typeInsert   = "INSERT"
	typeUpdate   = "UPDATE"
	typeReminder = "reminder"
)

// wireEnvelope covers both the database-webhook shape
// {table, type, record, old_record} and the reminder shape {type, match_id}.
type wireEnvelope struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
	MatchID   ID              `json:"match_id"`
}

type matchEventRow struct {
	EventType string `json:"event_type"`
	MatchID   ID     `json:"match_id"`
}

type matchRow struct {
	ID          ID         `json:"id"`
	Status      string     `json:"status"`
	KickoffTime *Timestamp `json:"kickoff_time"`
	HomeGoals   *int       `json:"home_goals"`
	AwayGoals   *int       `json:"away_goals"`
}

// ParseEnvelope decodes a webhook or NOTIFY payload. The reminder shape is
// recognised first; a payload that also carries row-change fields is rejected
// with ErrAmbiguousEnvelope.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if w.Type == typeReminder {
		if w.Table != "" || !isNull(w.Record) || !isNull(w.OldRecord) {
			return nil, ErrAmbiguousEnvelope
		}
		if w.MatchID == "" {
			return nil, fmt.Errorf("%w: reminder without match_id", ErrMalformedEnvelope)
		}
		return Reminder{MatchID: string(w.MatchID)}, nil
	}

	switch {
	case w.Table == config.MatchEventsTable && w.Type == typeInsert:
		if isNull(w.Record) {
			return nil, fmt.Errorf("%w: %s insert without record", ErrMalformedEnvelope, w.Table)
		}
		var rec matchEventRow
		if err := json.Unmarshal(w.Record, &rec); err != nil {
			return nil, fmt.Errorf("%w: record: %v", ErrMalformedEnvelope, err)
		}
		return MatchEventInsert{EventType: rec.EventType, MatchID: string(rec.MatchID)}, nil

	case w.Table == config.MatchesTable && w.Type == typeUpdate:
		if isNull(w.Record) || isNull(w.OldRecord) {
			return nil, fmt.Errorf("%w: %s update needs record and old_record", ErrMalformedEnvelope, w.Table)
		}
		var rec, old matchRow
		if err := json.Unmarshal(w.Record, &rec); err != nil {
			return nil, fmt.Errorf("%w: record: %v", ErrMalformedEnvelope, err)
		}
		if err := json.Unmarshal(w.OldRecord, &old); err != nil {
			return nil, fmt.Errorf("%w: old_record: %v", ErrMalformedEnvelope, err)
		}
		return MatchUpdate{
			MatchID:    string(rec.ID),
			OldStatus:  old.Status,
			NewStatus:  rec.Status,
			OldKickoff: old.KickoffTime.ptr(),
			NewKickoff: rec.KickoffTime.ptr(),
			HomeGoals:  deref(rec.HomeGoals),
			AwayGoals:  deref(rec.AwayGoals),
		}, nil
	}

	return Unclassified{Table: w.Table, Type: w.Type}, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// --------------------------------------------------------------------------
// Field codecs
// --------------------------------------------------------------------------

// ID is a row identifier that may arrive as a JSON string (uuid) or number
// (bigint).
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Timestamp parses the timestamp renderings Postgres and Supabase emit.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts RFC 3339 and Postgres text timestamps. Values without
// a zone are taken as UTC.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
