package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"credit-risk/domain"
	"credit-risk/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Assessor is the part of service.AssessmentService the handlers need.
type Assessor interface {
	Assess(ctx context.Context, profile domain.ClientProfile) (domain.Assessment, error)
	History(ctx context.Context, limit int) ([]domain.Assessment, error)
}

type AssessmentHandler struct {
	service Assessor
	export  *service.ExportService
	logger  *zap.Logger
}

func NewAssessmentHandler(svc Assessor, export *service.ExportService, logger *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{service: svc, export: export, logger: logger}
}

// Create scores a JSON profile. Omitted fields take the form defaults.
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		writeError(w, h.logger, http.StatusUnsupportedMediaType, "Content-Type must be application/json", "")
		return
	}

	profile := domain.DefaultProfile()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&profile); err != nil {
		h.logger.Debug("decode request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", decodeErrorField(err))
		return
	}

	assessment, err := h.service.Assess(r.Context(), profile)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, assessment)
}

// decodeErrorField names the offending field of a type mismatch, if any.
func decodeErrorField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field
	}
	return ""
}

type historyResponse struct {
	Count       int                 `json:"count"`
	Assessments []domain.Assessment `json:"assessments"`
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return limit, nil
}

func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error(), "limit")
		return
	}

	history, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("list assessments", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list assessments", "")
		return
	}
	if history == nil {
		history = []domain.Assessment{}
	}

	writeJSON(w, h.logger, http.StatusOK, historyResponse{Count: len(history), Assessments: history})
}

// Export downloads the history as an XLSX workbook.
func (h *AssessmentHandler) Export(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error(), "limit")
		return
	}
	if limit == 0 {
		limit = service.MaxHistoryLimit
	}

	history, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("list assessments for export", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list assessments", "")
		return
	}

	data, err := h.export.Workbook(history)
	if err != nil {
		h.logger.Error("build workbook", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "failed to build export", "")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+service.ExportFileName(time.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("write export", zap.Error(err))
	}
}

type schemaField struct {
	domain.FieldSpec
	Options       []string `json:"options,omitempty"`
	DefaultOption string   `json:"default_option,omitempty"`
}

// Schema describes the form: field order, bounds and option lists.
func (h *AssessmentHandler) Schema(w http.ResponseWriter, r *http.Request) {
	fields := make([]schemaField, 0, len(domain.Schema))
	for _, f := range domain.Schema {
		fields = append(fields, schemaField{
			FieldSpec:     f,
			Options:       f.Options(),
			DefaultOption: f.DefaultOption(),
		})
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"fields": fields})
}
