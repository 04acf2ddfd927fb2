// This file writes JSON responses and maps service errors onto status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// The status line is already out; an encode error only means the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// statusFor maps an error to its status code. Caller mistakes keep their
// detail; everything else is reported with the route's generic message.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, true
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, false
	default:
		return http.StatusInternalServerError, false
	}
}

// fail writes the error response for err. generic is the message shown for
// failures that are not the caller's fault.
func fail(w http.ResponseWriter, r *http.Request, err error, generic string) {
	status, detailed := statusFor(err)
	message := generic
	switch {
	case detailed:
		message = generic + ": " + trimSentinel(err)
	case status == http.StatusNotFound:
		message = "Not found"
	}

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), generic, err, log.ComponentHTTP, r.Method+" "+r.URL.Path,
			log.NewFields().WithErrorType(errorType(err)))
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldStatusCode, status,
			log.FieldPath, r.URL.Path,
			"error", err.Error())
	}
	writeMessage(w, status, message)
}

// trimSentinel drops the "invalid input: " prefix added by the services.
func trimSentinel(err error) string {
	msg := err.Error()
	prefix := services.ErrInvalidInput.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return log.ErrorTypeCanceled
	default:
		return log.ErrorTypeInternal
	}
}
