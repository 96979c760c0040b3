package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReload(t *testing.T) {
	m := New()
	m.ObserveReload(nil)
	m.ObserveReload(nil)
	m.ObserveReload(errors.New("bad file"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelReloads.WithLabelValues("error")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Assessments.WithLabelValues("high").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `credit_risk_assessments_total{risk_class="high"} 1`)
}
