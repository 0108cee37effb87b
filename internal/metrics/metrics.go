package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the analysis service. It
// mirrors the per-run performance tracker as scrapeable series.
type Metrics struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runsInFlight  prometheus.Gauge
}

// New creates and registers the service metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_pipeline_runs_total",
		Help: "Pipeline runs by terminal status",
	}, []string{"status"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meeting_pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"stage"})
	stageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_pipeline_stage_failures_total",
		Help: "Stage executions that ended in failure",
	}, []string{"stage"})
	runsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_pipeline_runs_in_flight",
		Help: "Pipeline runs currently executing",
	})

	registry.MustRegister(runsTotal, stageDuration, stageFailures, runsInFlight)

	return &Metrics{
		registry:      registry,
		runsTotal:     runsTotal,
		stageDuration: stageDuration,
		stageFailures: stageFailures,
		runsInFlight:  runsInFlight,
	}
}

// RunFinished records a run's terminal status.
func (m *Metrics) RunFinished(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage string, d time.Duration, ok bool) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if !ok {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RunStarted increments the in-flight gauge; the returned func decrements it.
func (m *Metrics) RunStarted() func() {
	m.runsInFlight.Inc()
	return m.runsInFlight.Dec
}

// Handler serves the registry for Prometheus scrapes.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
