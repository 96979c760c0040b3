package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Assessments  *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	Duration     prometheus.Histogram
	CacheLookups *prometheus.CounterVec
	ModelReloads *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_risk_assessments_total",
			Help: "Completed assessments by predicted risk class.",
		}, []string{"risk_class"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_risk_assessment_failures_total",
			Help: "Rejected or failed assessments by reason.",
		}, []string{"reason"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "credit_risk_assessment_duration_seconds",
			Help:    "Time spent scoring and explaining one client.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_risk_cache_lookups_total",
			Help: "Assessment cache lookups by result.",
		}, []string{"result"}),
		ModelReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credit_risk_model_reloads_total",
			Help: "Model artifact loads by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.Assessments,
		m.Failures,
		m.Duration,
		m.CacheLookups,
		m.ModelReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReload is suitable as an ml.Holder reload callback.
func (m *Metrics) ObserveReload(err error) {
	if err != nil {
		m.ModelReloads.WithLabelValues("error").Inc()
		return
	}
	m.ModelReloads.WithLabelValues("ok").Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
