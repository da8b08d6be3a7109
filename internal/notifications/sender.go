package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fixed platform delivery hints.
const (
	androidPriority  = "high"
	androidChannelID = "high_importance_channel"
	defaultSound     = "default"
	apnsBadge        = 1
	dataTypeUpdate   = "update"

	maxErrorBody = 4096
	maxDrainBody = 64 << 10
)

// FCMSender sends push notifications through the Firebase Cloud Messaging
// HTTP v1 API, one request per device token.
type FCMSender struct {
	httpClient *http.Client
	baseURL    string
	projectID  string
	logger     *slog.Logger
}

// NewFCMSender creates an FCM sender for projectID. timeout bounds each
// individual send.
func NewFCMSender(baseURL, projectID string, timeout time.Duration, logger *slog.Logger) *FCMSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMSender{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectID:  projectID,
		logger:     logger,
	}
}

// FCM v1 request body.
type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
	Android      fcmAndroid        `json:"android"`
	APNS         fcmAPNS           `json:"apns"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmAndroidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channel_id"`
}

type fcmAPNS struct {
	Payload fcmAPNSPayload `json:"payload"`
}

type fcmAPNSPayload struct {
	APS fcmAPS `json:"aps"`
}

type fcmAPS struct {
	Sound string `json:"sound"`
	Badge int    `json:"badge"`
}

func buildFCMRequest(deviceToken string, msg Message) fcmRequest {
	return fcmRequest{Message: fcmMessage{
		Token:        deviceToken,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         map[string]string{"matchId": msg.MatchID, "type": dataTypeUpdate},
		Android: fcmAndroid{
			Priority:     androidPriority,
			Notification: fcmAndroidNotification{Sound: defaultSound, ChannelID: androidChannelID},
		},
		APNS: fcmAPNS{Payload: fcmAPNSPayload{APS: fcmAPS{Sound: defaultSound, Badge: apnsBadge}}},
	}}
}

// Send delivers msg to one device token. A non-2xx response is returned as
// an error carrying the provider's response body.
func (s *FCMSender) Send(ctx context.Context, accessToken, deviceToken string, msg Message) error {
	if s.projectID == "" {
		return fmt.Errorf("FCM project id is not configured")
	}

	body, err := json.Marshal(buildFCMRequest(deviceToken, msg))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.baseURL, url.PathEscape(s.projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("FCM request: %w", err)
	}
	defer func() {
		// Drain what is left so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBody))
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("read FCM response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("FCM returned %d: %s", resp.StatusCode, truncate(respBody, 300))
	}
	s.logger.Debug("FCM accepted message", "status", resp.StatusCode)
	return nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
