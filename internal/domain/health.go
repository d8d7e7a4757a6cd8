package domain

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth describes a single dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// BFFMetrics is returned by GET /v1/metrics/bff.
type BFFMetrics struct {
	ActiveWorkspaces int64   `json:"activeWorkspaces"`
	LiveCharts       int64   `json:"liveCharts"`
	MetricsFetches   int64   `json:"metricsFetches"`
	TrendsFetches    int64   `json:"trendsFetches"`
	FetchErrorRate   float64 `json:"fetchErrorRate"`
	UpstreamErrors   int64   `json:"upstreamErrors"`
}
