// Package httpx writes the JSON bodies of the wallet endpoints.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Error is the JSON error body: {"error", "message", "status", "request_id"}.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError builds an Error; a zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: code, Message: oneLine(message), Status: status}
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err with the request id chi assigned to ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	WriteJSON(w, err.Status, errorBody{
		Error:     err.Code,
		Message:   err.Message,
		Status:    err.Status,
		RequestID: middleware.GetReqID(ctx),
	})
}

// WriteJSON encodes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
