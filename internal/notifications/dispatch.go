package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/scoracle-push/internal/metrics"
)

// Outcome is the result of one send to one token.
type Outcome struct {
	Token     string
	Delivered bool
	Err       error
}

// Dispatch sends intent to every token concurrently and reports how many
// deliveries succeeded. With no tokens it returns immediately without asking
// for a credential. A credential failure aborts the dispatch; a failed send
// only counts against its own token.
//
// Sends run detached from ctx cancellation: once the fan-out starts every
// attempt is allowed to settle.
func Dispatch(ctx context.Context, intent Intent, tokens []string, creds CredentialProvider, sender Sender, logger *slog.Logger) (Summary, error) {
	if len(tokens) == 0 {
		return Summary{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Fetching push access token")
	accessToken, err := creds.Token(ctx)
	if err != nil {
		metrics.CredentialFailures.Inc()
		if errors.Is(err, ErrCredential) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("%w: %w", ErrCredential, err)
	}
	logger.Info("Push access token acquired")

	start := time.Now()
	msg := Message{Title: intent.Title, Body: intent.Body, MatchID: intent.MatchID}
	sendCtx := context.WithoutCancel(ctx)

	// One slot per token; goroutines never share mutable state.
	outcomes := make([]Outcome, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = deliver(sendCtx, sender, accessToken, token, msg, logger)
		}()
	}
	wg.Wait()
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())

	summary := Summary{Total: len(tokens)}
	for _, o := range outcomes {
		if o.Delivered {
			summary.Sent++
		}
	}
	return summary, nil
}

// deliver performs a single send and converts any failure, including a panic
// inside the sender, into a failed Outcome.
func deliver(ctx context.Context, sender Sender, accessToken, token string, msg Message, logger *slog.Logger) (out Outcome) {
	out.Token = token
	prefix := tokenPrefix(token)

	defer func() {
		if r := recover(); r != nil {
			out.Delivered = false
			out.Err = fmt.Errorf("sender panic: %v", r)
			metrics.Deliveries.WithLabelValues("failed").Inc()
			logger.Error("Push send panicked", "token", prefix, "error", out.Err)
		}
	}()

	logger.Debug("Attempting push send", "token", prefix)
	if err := sender.Send(ctx, accessToken, token, msg); err != nil {
		out.Err = err
		metrics.Deliveries.WithLabelValues("failed").Inc()
		logger.Warn("Push send failed", "token", prefix, "error", err)
		return out
	}

	out.Delivered = true
	metrics.Deliveries.WithLabelValues("sent").Inc()
	logger.Debug("Push sent", "token", prefix)
	return out
}

func tokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return token + "..."
	}
	return token[:tokenPrefixLen] + "..."
}
