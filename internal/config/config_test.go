package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no database URL is set")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("FCM_SERVICE_ACCOUNT", "")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", "")
	t.Setenv("NOTIFY_TIMEZONE", "")
	t.Setenv("API_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != 8000 {
		t.Fatalf("APIPort = %d, want 8000", cfg.APIPort)
	}
	if cfg.NotifyLocation != time.UTC {
		t.Fatalf("NotifyLocation = %v, want UTC", cfg.NotifyLocation)
	}
	if cfg.PushEnabled() {
		t.Fatal("push should be disabled without service account")
	}
	if cfg.ReminderLead != time.Hour {
		t.Fatalf("ReminderLead = %v, want 1h", cfg.ReminderLead)
	}
	if cfg.ListenerChannel != "match_changes" {
		t.Fatalf("ListenerChannel = %q", cfg.ListenerChannel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "postgres://supabase/db")
	t.Setenv("PORT", "9090")
	t.Setenv("API_PORT", "")
	t.Setenv("FCM_BASE_URL", "http://fcm.local/")
	t.Setenv("FCM_REQUEST_TIMEOUT", "3s")
	t.Setenv("NOTIFY_TIMEZONE", "Europe/London")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LISTENER_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://supabase/db" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.APIPort != 9090 {
		t.Fatalf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.FCMBaseURL != "http://fcm.local" {
		t.Fatalf("FCMBaseURL = %q", cfg.FCMBaseURL)
	}
	if cfg.FCMRequestTimeout != 3*time.Second {
		t.Fatalf("FCMRequestTimeout = %v", cfg.FCMRequestTimeout)
	}
	if cfg.NotifyLocation.String() != "Europe/London" {
		t.Fatalf("NotifyLocation = %v", cfg.NotifyLocation)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
	if !cfg.ListenerEnabled {
		t.Fatal("ListenerEnabled = false")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("NOTIFY_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLoadServiceAccountFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"project_id":"demo"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("NOTIFY_TIMEZONE", "")
	t.Setenv("FCM_SERVICE_ACCOUNT", "")
	t.Setenv("FIREBASE_CREDENTIALS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(cfg.FCMServiceAccount) != `{"project_id":"demo"}` {
		t.Fatalf("FCMServiceAccount = %s", cfg.FCMServiceAccount)
	}
}
