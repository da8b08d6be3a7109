package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/albapepper/scoracle-push/internal/api/respond"
	"github.com/albapepper/scoracle-push/internal/notifications"
)

// MatchEvents receives a database webhook or reminder envelope and runs it
// through the notification engine.
// @Summary Process a match change event
// @Description Accepts a {table, type, record, old_record} row-change envelope or a {type: "reminder", match_id} envelope, classifies it and pushes the resulting notification to every subscribed device.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer <WEBHOOK_SECRET> when a secret is configured"
// @Success 200 {object} respond.SentResponse
// @Success 200 {object} respond.MessageResponse
// @Failure 400 {object} respond.FailureResponse
// @Failure 401 {object} respond.FailureResponse
// @Failure 500 {object} respond.FailureResponse
// @Router /webhooks/match-events [post]
func (h *Handler) MatchEvents(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		respond.WriteFailure(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.WriteFailure(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		respond.WriteFailure(w, http.StatusBadRequest, "could not read request body")
		return
	}

	// The invocation outlives a caller that hangs up mid-request.
	result, err := h.engine.ProcessPayload(context.WithoutCancel(r.Context()), body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, notifications.ErrMalformedEnvelope) || errors.Is(err, notifications.ErrAmbiguousEnvelope) {
			status = http.StatusBadRequest
		}
		h.logger.Error("Webhook processing failed", "status", status, "error", err)
		respond.WriteFailure(w, status, err.Error())
		return
	}

	if result.Message != "" {
		respond.WriteJSONObject(w, http.StatusOK, respond.MessageResponse{Message: result.Message})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, respond.SentResponse{Success: true, Sent: result.Sent})
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.webhookSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookSecret)) == 1
}
