package service_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/port"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockAuthClient struct {
	token       string
	err         error
	registerErr error
	logins      atomic.Int32
	registers   atomic.Int32
}

func (m *mockAuthClient) Login(_ context.Context, _, _ string) (string, error) {
	m.logins.Add(1)
	return m.token, m.err
}

func (m *mockAuthClient) Register(_ context.Context, _, _, _ string) error {
	m.registers.Add(1)
	return m.registerErr
}

type mockMetricsClient struct {
	summary *domain.MetricsSummary
	err     error
	gate    chan struct{}
	calls   atomic.Int32
	token   atomic.Value
}

func (m *mockMetricsClient) GetSummary(_ context.Context, token string) (*domain.MetricsSummary, error) {
	m.calls.Add(1)
	m.token.Store(token)
	if m.gate != nil {
		<-m.gate
	}
	return m.summary, m.err
}

type trendsReply struct {
	points []domain.TrendPoint
	err    error
}

// mockTrendsClient answers per date range. Ranges listed in gates block
// until their channel is closed.
type mockTrendsClient struct {
	mu      sync.Mutex
	replies map[domain.DateRange]trendsReply
	gates   map[domain.DateRange]chan struct{}
	calls   []domain.DateRange
}

func newMockTrendsClient() *mockTrendsClient {
	return &mockTrendsClient{
		replies: map[domain.DateRange]trendsReply{},
		gates:   map[domain.DateRange]chan struct{}{},
	}
}

func (m *mockTrendsClient) reply(r domain.DateRange, points []domain.TrendPoint, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[r] = trendsReply{points: points, err: err}
}

func (m *mockTrendsClient) hold(r domain.DateRange) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan struct{})
	m.gates[r] = ch
	return ch
}

func (m *mockTrendsClient) GetTrends(_ context.Context, _ string, r domain.DateRange) ([]domain.TrendPoint, error) {
	m.mu.Lock()
	m.calls = append(m.calls, r)
	gate := m.gates[r]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	reply := m.replies[r]
	return reply.points, reply.err
}

func (m *mockTrendsClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockRenderer records chart creation and destruction in order.
type mockRenderer struct {
	mu     sync.Mutex
	live   int
	events []string
	specs  []domain.ChartSpec
}

func (m *mockRenderer) NewChart(spec domain.ChartSpec) (port.ChartHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live++
	m.events = append(m.events, "create")
	m.specs = append(m.specs, spec)
	return &mockHandle{r: m}, nil
}

func (m *mockRenderer) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

func (m *mockRenderer) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func (m *mockRenderer) LastSpec() domain.ChartSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.specs[len(m.specs)-1]
}

type mockHandle struct {
	r         *mockRenderer
	destroyed bool
}

func (h *mockHandle) WriteSVG(w io.Writer) error {
	_, err := io.WriteString(w, "<svg></svg>")
	return err
}

func (h *mockHandle) WritePNG(w io.Writer) error {
	_, err := w.Write([]byte{0x89, 'P', 'N', 'G'})
	return err
}

func (h *mockHandle) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	h.r.live--
	h.r.events = append(h.r.events, "destroy")
}

// --- Helpers ---

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)

type fixture struct {
	auth     *mockAuthClient
	metrics  *mockMetricsClient
	trends   *mockTrendsClient
	renderer *mockRenderer
	obs      *observability.Metrics
	deps     service.DashboardDeps
	authSvc  *service.AuthService
}

func newFixture() *fixture {
	f := &fixture{
		auth:     &mockAuthClient{},
		metrics:  &mockMetricsClient{},
		trends:   newMockTrendsClient(),
		renderer: &mockRenderer{},
		obs:      observability.NewMetrics(),
	}
	logger := zap.NewNop()
	f.deps = service.DashboardDeps{
		Metrics:     service.NewMetricsFetcher(f.metrics, f.obs, logger),
		Trends:      service.NewTrendsFetcher(f.trends, f.obs, logger),
		Renderer:    f.renderer,
		ChartWidth:  600,
		ChartHeight: 300,
		Logger:      logger,
	}
	f.authSvc = service.NewAuthService(f.auth, f.obs, logger)
	return f
}

func (f *fixture) workspace() *service.Workspace {
	return service.NewWorkspace("ws-1", f.authSvc, f.deps)
}

func waitIdle(t *testing.T, d *service.Dashboard) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, d.WaitIdle(ctx), "dashboard did not settle")
}

func ptr[T any](v T) *T {
	return &v
}
