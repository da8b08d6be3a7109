// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/notify.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names, matching the Supabase schema
// --------------------------------------------------------------------------

const (
	MatchesTable       = "matches"
	MatchEventsTable   = "match_events"
	TeamsTable         = "teams"
	SubscriptionsTable = "user_subscriptions"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Webhook
	WebhookSecret string

	// Push delivery (FCM HTTP v1)
	FCMServiceAccount []byte // raw service-account JSON; empty disables delivery
	FCMProjectID      string // overrides project_id from the service account
	FCMBaseURL        string
	FCMRequestTimeout time.Duration
	NotifyTimezone    string
	NotifyLocation    *time.Location

	// LISTEN/NOTIFY consumer
	ListenerEnabled bool
	ListenerChannel string

	// Reminder sweep
	ReminderEnabled  bool
	ReminderSchedule string
	ReminderLead     time.Duration
	ReminderWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("SUPABASE_DB_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or SUPABASE_DB_URL must be set")
	}

	serviceAccount, err := loadServiceAccount()
	if err != nil {
		return nil, err
	}

	tz := envOr("NOTIFY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_TIMEZONE %q: %w", tz, err)
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 600),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		WebhookSecret: envOr("WEBHOOK_SECRET", ""),

		FCMServiceAccount: serviceAccount,
		FCMProjectID:      envOr("FCM_PROJECT_ID", ""),
		FCMBaseURL:        strings.TrimRight(envOr("FCM_BASE_URL", "https://fcm.googleapis.com"), "/"),
		FCMRequestTimeout: envDuration("FCM_REQUEST_TIMEOUT", 10*time.Second),
		NotifyTimezone:    tz,
		NotifyLocation:    loc,

		ListenerEnabled: envBool("LISTENER_ENABLED", false),
		ListenerChannel: envOr("LISTENER_CHANNEL", "match_changes"),

		ReminderEnabled:  envBool("REMINDER_ENABLED", true),
		ReminderSchedule: envOr("REMINDER_SCHEDULE", "* * * * *"),
		ReminderLead:     envDuration("REMINDER_LEAD", time.Hour),
		ReminderWindow:   envDuration("REMINDER_WINDOW", time.Minute),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PushEnabled reports whether service-account material was supplied.
func (c *Config) PushEnabled() bool {
	return len(c.FCMServiceAccount) > 0
}

// loadServiceAccount prefers the inline FCM_SERVICE_ACCOUNT JSON and falls
// back to reading FIREBASE_CREDENTIALS_FILE.
func loadServiceAccount() ([]byte, error) {
	if raw := os.Getenv("FCM_SERVICE_ACCOUNT"); raw != "" {
		return []byte(raw), nil
	}
	path := os.Getenv("FIREBASE_CREDENTIALS_FILE")
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read FIREBASE_CREDENTIALS_FILE: %w", err)
	}
	return raw, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
