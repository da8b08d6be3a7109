package listener

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/scoracle-push/internal/notifications"
)

type processorFunc func(ctx context.Context, raw []byte) (notifications.Result, error)

func (f processorFunc) ProcessPayload(ctx context.Context, raw []byte) (notifications.Result, error) {
	return f(ctx, raw)
}

func TestHandleNotification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		result  notifications.Result
		err     error
		wantLog string
	}{
		{name: "sent", result: notifications.Result{Sent: 2, Total: 2}, wantLog: "Match event notifications dispatched"},
		{name: "no-op", result: notifications.Result{Message: notifications.MessageNoSubscribers}, wantLog: "No subscribers found"},
		{name: "malformed", err: notifications.ErrMalformedEnvelope, wantLog: "Failed to parse match event"},
		{name: "engine failure", err: errors.Join(notifications.ErrCredential, errors.New("boom")), wantLog: "Match event processing failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			var got string
			proc := processorFunc(func(_ context.Context, raw []byte) (notifications.Result, error) {
				got = string(raw)
				return tt.result, tt.err
			})

			payload := `{"type":"reminder","match_id":"m1"}`
			handleNotification(context.Background(), proc, payload, logger)

			if got != payload {
				t.Fatalf("engine received %q, want %q", got, payload)
			}
			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Fatalf("log %q does not contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestHandleNotificationIgnoresListenerShutdown(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var procErr error
	proc := processorFunc(func(ctx context.Context, _ []byte) (notifications.Result, error) {
		procErr = ctx.Err()
		return notifications.Result{Sent: 1, Total: 1}, nil
	})
	handleNotification(ctx, proc, `{"type":"reminder","match_id":"m1"}`, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	if procErr != nil {
		t.Fatalf("engine saw ctx error %v, want a live context", procErr)
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		current   time.Duration
		connected bool
		wantWait  time.Duration
		wantNext  time.Duration
	}{
		{name: "first failure", current: reconnectBackoff, wantWait: 5 * time.Second, wantNext: 10 * time.Second},
		{name: "doubles", current: 10 * time.Second, wantWait: 10 * time.Second, wantNext: 20 * time.Second},
		{name: "capped", current: maxReconnect, wantWait: maxReconnect, wantNext: maxReconnect},
		{name: "reset after a live session", current: maxReconnect, connected: true, wantWait: reconnectBackoff, wantNext: 10 * time.Second},
	}
	for _, tt := range tests {
		wait, next := retryDelay(tt.current, tt.connected)
		if wait != tt.wantWait || next != tt.wantNext {
			t.Fatalf("%s: retryDelay(%v, %v) = %v, %v; want %v, %v",
				tt.name, tt.current, tt.connected, wait, next, tt.wantWait, tt.wantNext)
		}
	}
}
