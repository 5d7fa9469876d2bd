package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistrationIsIdempotent(t *testing.T) {
	m := NewMetrics("test")
	opts := prometheus.CounterOpts{Name: "trees_total", Help: "trees"}

	first := m.NewCounterVec(opts, []string{"forest"})
	second := m.NewCounterVec(opts, []string{"forest"})
	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.WithLabelValues("a")))
}

func TestConflictingRegistrationPanics(t *testing.T) {
	m := NewMetrics("test")
	m.NewGaugeVec(prometheus.GaugeOpts{Name: "depth", Help: "depth"}, []string{"a"})
	assert.Panics(t, func() {
		m.NewGaugeVec(prometheus.GaugeOpts{Name: "depth", Help: "depth"}, []string{"b"})
	})
}

func TestHandlerExposesBuildInfo(t *testing.T) {
	m := NewMetrics("test")
	m.RegisterBuildInfo("randforest", "v1.2.3")
	m.RegisterBuildInfo("ignored", "again")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, rec.Body.String(), `build_info{service="randforest",version="v1.2.3"} 1`)
	assert.NotContains(t, rec.Body.String(), "ignored")
}
