// Package listener provides a Postgres LISTEN/NOTIFY consumer for match
// change events. It holds a dedicated pgx connection (not from the pool)
// listening on the configured channel.
//
// A database trigger publishes the same {table, type, record, old_record}
// envelope the webhook receives; each notification is handed to the
// notification engine.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-push/internal/metrics"
	"github.com/albapepper/scoracle-push/internal/notifications"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Processor runs one raw envelope through the notification engine.
type Processor interface {
	ProcessPayload(ctx context.Context, raw []byte) (notifications.Result, error)
}

// Start opens a dedicated connection and listens on channel. It reconnects
// automatically on connection loss. Blocks until ctx is cancelled. Intended
// to be called with `go`.
func Start(ctx context.Context, dbURL, channel string, proc Processor, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		connected, err := listenLoop(ctx, dbURL, channel, proc, logger)
		if ctx.Err() != nil {
			logger.Info("Match event listener stopped (context cancelled)")
			return
		}

		var wait time.Duration
		wait, backoff = retryDelay(backoff, connected)

		metrics.ListenerReconnects.Inc()
		logger.Error("Match event listener disconnected, reconnecting...",
			"error", err, "backoff", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// retryDelay returns the wait before the next reconnect and the delay to use
// after that. A session that got as far as LISTEN starts over from
// reconnectBackoff.
func retryDelay(current time.Duration, connected bool) (wait, next time.Duration) {
	if connected {
		current = reconnectBackoff
	}
	return current, min(current*2, maxReconnect)
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled; connected reports whether LISTEN succeeded.
func listenLoop(ctx context.Context, dbURL, channel string, proc Processor, logger *slog.Logger) (connected bool, err error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	if err != nil {
		return false, fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Match event listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}

		logger.Debug("Match event received",
			"channel", notification.Channel, "pid", notification.PID)

		// Process asynchronously to avoid blocking the listener
		go handleNotification(ctx, proc, notification.Payload, logger)
	}
}

// handleNotification runs one payload through the engine and logs the
// outcome. Errors are logged, never returned: the listener keeps consuming.
// A started invocation is not cut short by the listener shutting down.
func handleNotification(ctx context.Context, proc Processor, payload string, logger *slog.Logger) {
	result, err := proc.ProcessPayload(context.WithoutCancel(ctx), []byte(payload))
	if err != nil {
		if errors.Is(err, notifications.ErrMalformedEnvelope) || errors.Is(err, notifications.ErrAmbiguousEnvelope) {
			logger.Warn("Failed to parse match event", "payload", payload, "error", err)
			return
		}
		logger.Error("Match event processing failed", "error", err)
		return
	}

	if result.Message != "" {
		logger.Info("Match event handled", "message", result.Message)
		return
	}
	logger.Info("Match event notifications dispatched",
		"sent", result.Sent, "total", result.Total)
}
