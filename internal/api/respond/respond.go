// Package respond provides shared JSON response utilities for API handlers.
package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the structured error shape used by middleware and
// non-webhook routes.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// FailureResponse is the flat error body returned by the webhook.
type FailureResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned when an event was accepted but nothing was sent.
type MessageResponse struct {
	Message string `json:"message"`
}

// SentResponse is returned after a dispatch finished.
type SentResponse struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	writeNoStore(w, status, resp)
}

// WriteFailure sends {"error": message}.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	writeNoStore(w, status, FailureResponse{Error: message})
}

// WriteJSONObject marshals a Go value to JSON and writes it.
func WriteJSONObject(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeNoStore(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	WriteJSONObject(w, status, v)
}
