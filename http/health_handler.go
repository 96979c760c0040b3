package http

import (
	"net/http"

	"credit-risk/service"

	"go.uber.org/zap"
)

type HealthHandler struct {
	models service.ModelProvider
	logger *zap.Logger
}

func NewHealthHandler(models service.ModelProvider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{models: models, logger: logger}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz succeeds once a model is loaded.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	model, err := h.models.Current()
	if err != nil {
		writeJSON(w, h.logger, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"status":        "ready",
		"model_version": model.Version(),
		"trees":         model.NumTrees(),
	})
}
