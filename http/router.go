package http

import (
	"net/http"
	"time"

	"credit-risk/metrics"
	"credit-risk/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Assessments Assessor
	Export      *service.ExportService
	Models      service.ModelProvider
	Metrics     *metrics.Metrics
	Limiter     *RateLimiter
	Logger      *zap.Logger
	// Timeout bounds each request; zero means 30s.
	Timeout time.Duration
}

// NewRouter mounts the form, the JSON API and the operational endpoints.
func NewRouter(deps RouterDeps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	assessments := NewAssessmentHandler(deps.Assessments, deps.Export, logger)
	form := NewFormHandler(deps.Assessments, logger)
	health := NewHealthHandler(deps.Models, logger)

	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		if deps.Metrics != nil {
			deps.Limiter.OnReject(func(string) { deps.Metrics.Failures.WithLabelValues("rate_limited").Inc() })
		}
		limit = RateLimitMiddleware(deps.Limiter, logger)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, logger, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/", form.Index)
	r.With(limit).Post("/assess", form.Submit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", assessments.Schema)
		r.Route("/assessments", func(r chi.Router) {
			r.With(limit).Post("/", assessments.Create)
			r.Get("/", assessments.List)
			r.Get("/export", assessments.Export)
		})
	})

	return r
}
