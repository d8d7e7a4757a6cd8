package service

import (
	"context"
	"sync"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/port"

	"go.uber.org/zap"
)

// FetchStatus is the state of one dashboard fetcher.
type FetchStatus int

const (
	FetchIdle FetchStatus = iota
	FetchLoading
	FetchSucceeded
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchLoading:
		return "loading"
	case FetchSucceeded:
		return "success"
	case FetchFailed:
		return "error"
	default:
		return "idle"
	}
}

// DashboardDeps are the collaborators shared by every dashboard.
type DashboardDeps struct {
	Metrics     *MetricsFetcher
	Trends      *TrendsFetcher
	Renderer    port.ChartRenderer
	ChartWidth  int
	ChartHeight int
	Logger      *zap.Logger
}

// Dashboard holds the data-and-render state for one session token.
//
// Fetches run in the background on a context detached from the request that
// started them. Results are applied in completion order under mu, so when two
// trends requests overlap the one that finishes last wins.
type Dashboard struct {
	mu      sync.Mutex
	token   string
	deps    DashboardDeps
	surface *ChartSurface

	metricsStatus FetchStatus
	summary       *domain.MetricsSummary
	metricsErr    error
	failureShown  bool

	dateRange     domain.DateRange
	trendsStatus  FetchStatus
	trends        []domain.TrendPoint
	trendsErr     error
	trendsPending int

	pending int
	changed chan struct{}
	closed  bool
}

// NewDashboard creates a dashboard bound to token with an empty chart surface.
func NewDashboard(token string, deps DashboardDeps) *Dashboard {
	return &Dashboard{
		token:   token,
		deps:    deps,
		surface: NewChartSurface(deps.Renderer, deps.ChartWidth, deps.ChartHeight),
		trends:  []domain.TrendPoint{},
		changed: make(chan struct{}),
	}
}

// Token returns the session token the dashboard fetches with.
func (d *Dashboard) Token() string {
	return d.token
}

// Surface returns the dashboard's chart surface.
func (d *Dashboard) Surface() *ChartSurface {
	return d.surface
}

// Start issues the metrics request. Only the first call has an effect.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.token == "" || d.metricsStatus != FetchIdle {
		return
	}

	d.metricsStatus = FetchLoading
	d.metricsErr = nil
	d.begin()

	ctx = context.WithoutCancel(ctx)
	go func() {
		summary, err := d.deps.Metrics.Fetch(ctx, d.token)
		d.applyMetrics(summary, err)
	}()
}

// MetricsFailed reports whether the summary request ended in an error.
func (d *Dashboard) MetricsFailed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsStatus == FetchFailed
}

// FailureShown reports whether a failed summary has already been handed out
// by View.
func (d *Dashboard) FailureShown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsStatus == FetchFailed && d.failureShown
}

func (d *Dashboard) applyMetrics(summary *domain.MetricsSummary, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.end()

	if d.closed {
		return
	}
	if err != nil {
		d.metricsStatus = FetchFailed
		d.metricsErr = err
		return
	}
	d.metricsStatus = FetchSucceeded
	d.summary = summary
}

// SetDateRange updates the selected range. A trends request is issued when
// the range changed and both bounds are set. Re-submitting the same range
// retries it after a failed request.
func (d *Dashboard) SetDateRange(ctx context.Context, r domain.DateRange) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if r == d.dateRange && d.trendsStatus != FetchFailed {
		return
	}
	d.dateRange = r

	if d.token == "" || !r.Complete() {
		return
	}

	d.trendsStatus = FetchLoading
	d.trendsErr = nil
	d.trendsPending++
	d.begin()

	ctx = context.WithoutCancel(ctx)
	go func() {
		points, err := d.deps.Trends.Fetch(ctx, d.token, r)
		d.applyTrends(points, err)
	}()
}

func (d *Dashboard) applyTrends(points []domain.TrendPoint, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.end()

	d.trendsPending--
	if d.closed {
		return
	}
	if err != nil {
		d.trendsStatus = FetchFailed
		d.trendsErr = err
		return
	}

	d.trendsStatus = FetchSucceeded
	d.trends = points
	if err := d.surface.Redraw(points); err != nil {
		d.deps.Logger.Error("chart redraw failed", zap.Error(err))
	}
}

// begin and end track in-flight fetches; both need mu held.
func (d *Dashboard) begin() {
	d.pending++
	d.notify()
}

func (d *Dashboard) end() {
	d.pending--
	d.notify()
}

func (d *Dashboard) notify() {
	close(d.changed)
	d.changed = make(chan struct{})
}

// WaitIdle blocks until no fetch is in flight or ctx is done. It reports
// whether the dashboard is idle.
func (d *Dashboard) WaitIdle(ctx context.Context) bool {
	for {
		d.mu.Lock()
		if d.pending == 0 {
			d.mu.Unlock()
			return true
		}
		ch := d.changed
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return false
		}
	}
}

// Trends returns the current trend sequence.
func (d *Dashboard) Trends() []domain.TrendPoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trends
}

// Close releases the chart and stops applying fetch results.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.surface.Release()
}
