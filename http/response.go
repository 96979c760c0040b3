package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"credit-risk/domain"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON encodes into a buffer first so a failed encode never leaves a
// half-written 200.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("encode response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message, field string) {
	writeJSON(w, logger, status, errorResponse{Error: message, Field: field})
}

// errorStatus maps service errors to HTTP statuses.
func errorStatus(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err as JSON; internal details are only logged.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusBadRequest:
		var verr *domain.ValidationError
		errors.As(err, &verr)
		writeError(w, logger, status, verr.Error(), verr.Field)
	case http.StatusServiceUnavailable:
		writeError(w, logger, status, "model not loaded", "")
	default:
		logger.Error("assessment failed", zap.Error(err))
		writeError(w, logger, status, "internal server error", "")
	}
}
