// Command notify is the Scoracle push operations CLI. It runs envelopes
// through the same engine the webhook uses, without the HTTP server.
//
// Usage:
//
//	scoracle-notify send --file event.json
//	echo '{"type":"reminder","match_id":"42"}' | scoracle-notify send
//	scoracle-notify remind --match 42
//	scoracle-notify sweep
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-push/internal/config"
	"github.com/albapepper/scoracle-push/internal/db"
	"github.com/albapepper/scoracle-push/internal/maintenance"
	"github.com/albapepper/scoracle-push/internal/notifications"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "scoracle-notify",
		Short: "Scoracle push notification CLI",
	}

	root.AddCommand(sendCmd())
	root.AddCommand(remindCmd())
	root.AddCommand(sweepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// send command
// --------------------------------------------------------------------------

func sendCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Process one webhook envelope from a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool, engine *notifications.Engine) error {
				result, err := engine.ProcessPayload(ctx, raw)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the envelope JSON (default: stdin)")
	return cmd
}

// --------------------------------------------------------------------------
// remind command
// --------------------------------------------------------------------------

func remindCmd() *cobra.Command {
	var matchID string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send the starting-soon reminder for one match",
		RunE: func(cmd *cobra.Command, args []string) error {
			if matchID == "" {
				return fmt.Errorf("--match is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool, engine *notifications.Engine) error {
				result, err := engine.Process(ctx, notifications.Reminder{MatchID: matchID})
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&matchID, "match", "", "Match ID")
	return cmd
}

// --------------------------------------------------------------------------
// sweep command
// --------------------------------------------------------------------------

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool, engine *notifications.Engine) error {
				start := time.Now()
				res, err := maintenance.SweepReminders(ctx, maintenance.NewReminderStore(pool.Pool), engine,
					maintenance.Config{Lead: cfg.ReminderLead, Window: cfg.ReminderWindow}, logger)
				if err != nil {
					return err
				}
				logger.Info("Sweep finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"claimed", res.Claimed, "sent", res.Sent, "failed", res.Failed)
				return nil
			})
		},
	}
	return cmd
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func readPayload(stdin io.Reader, file string) ([]byte, error) {
	if file == "" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return raw, nil
}

func printResult(w io.Writer, r notifications.Result) {
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
		return
	}
	fmt.Fprintf(w, "sent %d of %d\n", r.Sent, r.Total)
}

func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool, engine *notifications.Engine) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	creds := notifications.NewServiceAccountCredentials(cfg.FCMServiceAccount, &http.Client{Timeout: cfg.FCMRequestTimeout})
	projectID := cfg.FCMProjectID
	if projectID == "" {
		projectID = creds.ProjectID()
	}
	store := notifications.NewStore(pool.Pool)
	engine := notifications.NewEngine(notifications.Deps{
		Matches:     store,
		Subscribers: store,
		Credentials: creds,
		Sender:      notifications.NewFCMSender(cfg.FCMBaseURL, projectID, cfg.FCMRequestTimeout, logger),
		Location:    cfg.NotifyLocation,
		Logger:      logger,
	})

	return fn(ctx, cfg, pool, engine)
}
