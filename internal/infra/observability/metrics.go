package observability

import (
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Fetch outcomes recorded by RecordFetch.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	fetchesTotal     *prometheus.CounterVec
	liveCharts       prometheus.Gauge
	activeWorkspaces prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bff_request_duration_seconds",
				Help:    "Duration of upstream calls and page renders by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bff_upstream_errors_total",
				Help: "Total failed calls to the commerce API by service.",
			},
			[]string{"service"},
		),
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bff_dashboard_fetches_total",
				Help: "Dashboard fetches by fetcher and outcome.",
			},
			[]string{"fetcher", "outcome"},
		),
		liveCharts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bff_live_charts",
				Help: "Chart objects currently alive across all surfaces.",
			},
		),
		activeWorkspaces: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bff_active_workspaces",
				Help: "Browser workspaces currently held in memory.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrUpstreamError increments the upstream error counter.
func (m *Metrics) IncrUpstreamError(service string) {
	m.upstreamErrors.WithLabelValues(service).Inc()
}

// RecordFetch counts a completed dashboard fetch.
func (m *Metrics) RecordFetch(fetcher string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.fetchesTotal.WithLabelValues(fetcher, outcome).Inc()
}

// ChartCreated and ChartDestroyed track live chart objects.
func (m *Metrics) ChartCreated()   { m.liveCharts.Inc() }
func (m *Metrics) ChartDestroyed() { m.liveCharts.Dec() }

// WorkspaceOpened and WorkspaceClosed track workspaces held in memory.
func (m *Metrics) WorkspaceOpened() { m.activeWorkspaces.Inc() }
func (m *Metrics) WorkspaceClosed() { m.activeWorkspaces.Dec() }

// Snapshot returns the values served by GET /v1/metrics/bff.
func (m *Metrics) Snapshot() *domain.BFFMetrics {
	metricsOK := getCounterValue(m.fetchesTotal, "metrics", OutcomeSuccess)
	metricsErr := getCounterValue(m.fetchesTotal, "metrics", OutcomeError)
	trendsOK := getCounterValue(m.fetchesTotal, "trends", OutcomeSuccess)
	trendsErr := getCounterValue(m.fetchesTotal, "trends", OutcomeError)

	total := metricsOK + metricsErr + trendsOK + trendsErr
	errorRate := float64(0)
	if total > 0 {
		errorRate = (metricsErr + trendsErr) / total
	}

	upstreamErrors := float64(0)
	for _, svc := range []string{"auth", "metrics", "trends"} {
		upstreamErrors += getCounterValue(m.upstreamErrors, svc)
	}

	return &domain.BFFMetrics{
		ActiveWorkspaces: int64(getGaugeValue(m.activeWorkspaces)),
		LiveCharts:       int64(getGaugeValue(m.liveCharts)),
		MetricsFetches:   int64(metricsOK + metricsErr),
		TrendsFetches:    int64(trendsOK + trendsErr),
		FetchErrorRate:   errorRate,
		UpstreamErrors:   int64(upstreamErrors),
	}
}

// LiveCharts returns the current value of the live charts gauge.
func (m *Metrics) LiveCharts() int {
	return int(getGaugeValue(m.liveCharts))
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
