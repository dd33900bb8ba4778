// Package httpx holds the JSON envelope shared by every REST handler.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/watchstore/pkg/apperr"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Success: true, Message: message, Data: data})
}

func Fail(w http.ResponseWriter, status int, message, detail string) {
	write(w, status, Envelope{Success: false, Message: message, Error: detail})
}

// Error maps err onto a failure envelope. Internal errors are logged and their
// detail surfaced in the error field.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusOf(kind)
	switch kind {
	case apperr.KindValidation:
		Fail(w, status, "Validation failed", apperr.MessageOf(err))
	case apperr.KindInternal:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		Fail(w, status, "Internal server error", err.Error())
	default:
		Fail(w, status, apperr.MessageOf(err), "")
	}
}

func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInsufficientStock, apperr.KindInvalidState:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into v, rejecting unknown shapes as validation errors.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body: %s", err.Error())
	}
	return nil
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
