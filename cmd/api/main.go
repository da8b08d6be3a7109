// Command api is the Scoracle push notification service. It receives match
// change webhooks, optionally consumes the same events over LISTEN/NOTIFY,
// and runs the pre-kickoff reminder sweep.
//
// Usage:
//
//	scoracle-push
//	API_PORT=8080 scoracle-push

// @title Scoracle Push API
// @version 1.0.0
// @description Turns match change events into Firebase push notifications for subscribed devices.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Scoracle
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/scoracle-push/internal/api"
	"github.com/albapepper/scoracle-push/internal/api/handler"
	"github.com/albapepper/scoracle-push/internal/config"
	"github.com/albapepper/scoracle-push/internal/db"
	"github.com/albapepper/scoracle-push/internal/listener"
	"github.com/albapepper/scoracle-push/internal/maintenance"
	"github.com/albapepper/scoracle-push/internal/metrics"
	"github.com/albapepper/scoracle-push/internal/notifications"

	_ "github.com/albapepper/scoracle-push/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	metrics.Register()

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Notification engine
	engine := newEngine(cfg, pool, logger)

	// LISTEN/NOTIFY consumer for trigger-published match events
	if cfg.ListenerEnabled {
		go listener.Start(ctx, cfg.DatabaseURL, cfg.ListenerChannel, engine, logger)
	} else {
		logger.Info("Match event listener disabled (LISTENER_ENABLED=false)")
	}

	// Reminder sweep
	if cfg.ReminderEnabled {
		go func() {
			err := maintenance.Start(ctx, maintenance.NewReminderStore(pool.Pool), engine, reminderConfig(cfg), logger)
			if err != nil {
				logger.Error("Reminder sweep not started", "error", err)
			}
		}()
	} else {
		logger.Info("Reminder sweep disabled (REMINDER_ENABLED=false)")
	}

	if cfg.IsProduction() && cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET is not set; the webhook accepts unauthenticated requests")
	}

	// Create router
	h := handler.New(pool, engine, cfg.WebhookSecret, logger)
	router := api.NewRouter(h, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Scoracle Push",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// newEngine wires the notification engine to Postgres and FCM.
func newEngine(cfg *config.Config, pool *db.Pool, logger *slog.Logger) *notifications.Engine {
	creds := notifications.NewServiceAccountCredentials(cfg.FCMServiceAccount, &http.Client{Timeout: cfg.FCMRequestTimeout})
	switch {
	case !cfg.PushEnabled():
		logger.Warn("Push delivery disabled (no FCM_SERVICE_ACCOUNT or FIREBASE_CREDENTIALS_FILE)")
	case creds.Err() != nil:
		logger.Warn("Push credentials invalid; dispatches with subscribers will fail", "error", creds.Err())
	}

	projectID := cfg.FCMProjectID
	if projectID == "" {
		projectID = creds.ProjectID()
	}

	store := notifications.NewStore(pool.Pool)
	return notifications.NewEngine(notifications.Deps{
		Matches:     store,
		Subscribers: store,
		Credentials: creds,
		Sender:      notifications.NewFCMSender(cfg.FCMBaseURL, projectID, cfg.FCMRequestTimeout, logger),
		Location:    cfg.NotifyLocation,
		Logger:      logger,
	})
}

func reminderConfig(cfg *config.Config) maintenance.Config {
	return maintenance.Config{
		Schedule: cfg.ReminderSchedule,
		Lead:     cfg.ReminderLead,
		Window:   cfg.ReminderWindow,
		Location: cfg.NotifyLocation,
	}
}
