package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/handler"
	"github.com/boddenberg/insights-bff-go/internal/infra/chart"
	"github.com/boddenberg/insights-bff-go/internal/infra/client"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/infra/resilience"
	"github.com/boddenberg/insights-bff-go/internal/infra/session"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI is a programmable commerce API.
type fakeAPI struct {
	login    func(w http.ResponseWriter, r *http.Request)
	register func(w http.ResponseWriter, r *http.Request)
	metrics  func(w http.ResponseWriter, r *http.Request)
	trends   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var h func(http.ResponseWriter, *http.Request)
	switch r.URL.Path {
	case "/auth/login":
		h = f.login
	case "/auth/register":
		h = f.register
	case "/metrics":
		h = f.metrics
	case "/metrics/trends":
		h = f.trends
	}
	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func reply(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const scenarioCMetrics = `{"totalCustomers":5,"totalOrders":10,"totalRevenue":199.5,"topCustomers":[]}`

// defaultAPI accepts a@b.com/x with token abc and serves Scenario C metrics.
func defaultAPI() *fakeAPI {
	return &fakeAPI{
		login:    reply(http.StatusOK, `{"token":"abc"}`),
		register: reply(http.StatusCreated, `{"success":true}`),
		metrics:  reply(http.StatusOK, scenarioCMetrics),
		trends:   reply(http.StatusOK, `[]`),
	}
}

type harness struct {
	t        *testing.T
	server   *httptest.Server
	browser  *http.Client
	renderer *chart.Renderer
	metrics  *observability.Metrics
	store    *service.WorkspaceStore
}

func newHarness(t *testing.T, api *fakeAPI, opts handler.Options) *harness {
	t.Helper()

	upstreamSrv := httptest.NewServer(api)
	t.Cleanup(upstreamSrv.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	upstream := client.New(&http.Client{Timeout: 2 * time.Second}, resilience.NewCircuitBreaker("test"), client.Options{
		BaseURL:          upstreamSrv.URL,
		TenantID:         "sneha-xeno-store",
		RegisterTenantID: "default",
		Resilience:       resilience.Config{MaxConcurrency: 8},
	})
	renderer := chart.NewRenderer(metrics)
	deps := service.DashboardDeps{
		Metrics:     service.NewMetricsFetcher(upstream.Metrics, metrics, logger),
		Trends:      service.NewTrendsFetcher(upstream.Trends, metrics, logger),
		Renderer:    renderer,
		ChartWidth:  600,
		ChartHeight: 300,
		Logger:      logger,
	}
	authSvc := service.NewAuthService(upstream.Auth, metrics, logger)
	store := service.NewWorkspaceStore(time.Hour, func(id string) *service.Workspace {
		return service.NewWorkspace(id, authSvc, deps)
	}, metrics, logger)
	t.Cleanup(store.Close)

	if opts.RenderWait == 0 {
		opts.RenderWait = 2 * time.Second
	}
	router := handler.NewRouter(handler.Deps{
		Store:    store,
		Cookies:  session.New(session.Options{Secret: "test-secret", TTL: time.Hour}),
		Upstream: upstream,
		Metrics:  metrics,
		Logger:   logger,
	}, opts)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &harness{
		t:        t,
		server:   srv,
		browser:  newBrowser(t),
		renderer: renderer,
		metrics:  metrics,
		store:    store,
	}
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.browser.Get(h.server.URL + path)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

// tryGet is safe to call off the test goroutine.
func (h *harness) tryGet(path string) string {
	resp, err := h.browser.Get(h.server.URL + path)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.browser.PostForm(h.server.URL+path, form)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

func (h *harness) login() string {
	h.t.Helper()
	_, body := h.post("/login", url.Values{"email": {"a@b.com"}, "password": {"x"}})
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (h *harness) cookie(name string) *http.Cookie {
	u, _ := url.Parse(h.server.URL)
	for _, c := range h.browser.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- Tests ---

func TestIntegration_InitialLoginForm(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	resp, body := h.get("/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Xeno FDE Internship Assignment")
	assert.Contains(t, body, `placeholder="Enter your email"`)
	assert.Contains(t, body, ">Register</button>")
}

func TestIntegration_ScenarioA_LoginShowsDashboard(t *testing.T) {
	api := defaultAPI()
	var gotAuth, gotTenant atomic.Value
	api.login = func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.com" || body["password"] != "x" {
			reply(http.StatusUnauthorized, `{"error":"Invalid credentials"}`)(w, r)
			return
		}
		reply(http.StatusOK, `{"token":"abc"}`)(w, r)
	}
	api.metrics = func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		gotTenant.Store(r.URL.Query().Get("tenantId"))
		reply(http.StatusOK, scenarioCMetrics)(w, r)
	}
	h := newHarness(t, api, handler.Options{})
	h.get("/")

	body := h.login()

	assert.Contains(t, body, "Shopify Insights Dashboard")
	assert.Equal(t, "Bearer abc", gotAuth.Load())
	assert.Equal(t, "sneha-xeno-store", gotTenant.Load())
	require.NotNil(t, h.cookie(session.TokenCookie), "token is persisted")
}

func TestIntegration_ScenarioB_RejectedLogin(t *testing.T) {
	api := defaultAPI()
	api.login = reply(http.StatusUnauthorized, `{"error":"Invalid credentials"}`)
	h := newHarness(t, api, handler.Options{})

	body := h.login()

	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, "Xeno FDE Internship Assignment")
	assert.Nil(t, h.cookie(session.TokenCookie))
}

func TestIntegration_LoginNetworkError(t *testing.T) {
	api := defaultAPI()
	api.login = reply(http.StatusOK, `<html>not json</html>`)
	h := newHarness(t, api, handler.Options{})

	body := h.login()

	assert.Contains(t, body, "Network error")
}

func TestIntegration_ScenarioC_Summary(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	body := h.login()

	assert.Contains(t, body, "Total Customers: 5")
	assert.Contains(t, body, "Total Orders: 10")
	assert.Contains(t, body, "Total Revenue: $199.50")
	assert.Contains(t, body, "No customers found")
	assert.Contains(t, body, "Select a date range to view trends")
}

func TestIntegration_TopCustomersDefaults(t *testing.T) {
	api := defaultAPI()
	api.metrics = reply(http.StatusOK, `{"topCustomers":[{"name":"Ada","email":"ada@example.com","totalSpent":42},{"totalSpent":"oops"}]}`)
	h := newHarness(t, api, handler.Options{})

	body := h.login()

	assert.Contains(t, body, "Ada (ada@example.com)")
	assert.Contains(t, body, "$42.00")
	assert.Contains(t, body, "Unknown (N/A)")
	assert.Contains(t, body, "Total Revenue: $0.00")
}

func TestIntegration_AbsentTopCustomers(t *testing.T) {
	api := defaultAPI()
	api.metrics = reply(http.StatusOK, `{"totalCustomers":1}`)
	h := newHarness(t, api, handler.Options{})

	body := h.login()

	assert.Contains(t, body, "Total Customers: 1")
	assert.Contains(t, body, "Total Orders: 0")
	assert.Contains(t, body, "Total Revenue: $0.00")
	assert.Contains(t, body, "No customers found")
}

func TestIntegration_MetricsErrors(t *testing.T) {
	tests := []struct {
		name    string
		metrics func(http.ResponseWriter, *http.Request)
		want    string
	}{
		{"non-2xx", reply(http.StatusInternalServerError, `{"error":"boom"}`), "Failed to fetch metrics"},
		{"null payload", reply(http.StatusOK, `null`), "No metrics found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := defaultAPI()
			api.metrics = tt.metrics
			h := newHarness(t, api, handler.Options{})

			body := h.login()

			assert.Contains(t, body, tt.want)
			assert.NotContains(t, body, "Total Revenue")
		})
	}
}

// flakyMetrics fails the first summary request with 503 and serves Scenario C
// afterwards.
func flakyMetrics(calls *atomic.Int32) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			reply(http.StatusServiceUnavailable, `{}`)(w, r)
			return
		}
		reply(http.StatusOK, scenarioCMetrics)(w, r)
	}
}

func TestIntegration_ReloadRetriesFailedMetrics(t *testing.T) {
	api := defaultAPI()
	var calls atomic.Int32
	api.metrics = flakyMetrics(&calls)
	h := newHarness(t, api, handler.Options{})

	body := h.login()
	require.Contains(t, body, "Failed to fetch metrics")

	_, body = h.get("/")

	assert.Contains(t, body, "Total Revenue: $199.50")
	assert.NotContains(t, body, "Failed to fetch metrics")
	assert.Equal(t, int32(2), calls.Load())

	_, body = h.get("/")
	assert.Contains(t, body, "Total Revenue: $199.50")
	assert.Equal(t, int32(2), calls.Load(), "a healthy dashboard is not refetched")
}

func TestIntegration_LoginAgainAfterFailedMetrics(t *testing.T) {
	api := defaultAPI()
	var calls atomic.Int32
	api.metrics = flakyMetrics(&calls)
	h := newHarness(t, api, handler.Options{})

	body := h.login()
	require.Contains(t, body, "Failed to fetch metrics")

	body = h.login()

	assert.Contains(t, body, "Total Revenue: $199.50")
	assert.Equal(t, int32(2), calls.Load())
}

func TestIntegration_SameRangeRetriedAfterTrendsFailure(t *testing.T) {
	api := defaultAPI()
	var calls atomic.Int32
	api.trends = func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			reply(http.StatusBadGateway, `{}`)(w, r)
			return
		}
		reply(http.StatusOK, `[{"date":"2024-01-01","orders":2,"revenue":50}]`)(w, r)
	}
	h := newHarness(t, api, handler.Options{})
	h.login()
	form := url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}}

	_, body := h.post("/dashboard/range", form)
	require.Contains(t, body, "Failed to fetch trends")

	_, body = h.post("/dashboard/range", form)

	assert.NotContains(t, body, "Failed to fetch trends")
	assert.Contains(t, body, `src="/dashboard/chart.svg?v=1"`)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, h.renderer.Live())
}

func TestIntegration_CookielessReadsOpenNoWorkspace(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	resp, body := h.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Xeno FDE Internship Assignment")
	resp, _ = h.get("/v1/dashboard")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Nil(t, h.cookie(session.WorkspaceCookie))
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, int64(0), h.metrics.Snapshot().ActiveWorkspaces)

	_, body = h.post("/toggle", nil)
	assert.Contains(t, body, `placeholder="Enter your name"`)
	assert.NotNil(t, h.cookie(session.WorkspaceCookie))
	assert.Equal(t, 1, h.store.Len())
}

func TestIntegration_LoadingStateRefreshes(t *testing.T) {
	api := defaultAPI()
	release := make(chan struct{})
	api.metrics = func(w http.ResponseWriter, r *http.Request) {
		<-release
		reply(http.StatusOK, scenarioCMetrics)(w, r)
	}
	h := newHarness(t, api, handler.Options{RenderWait: 50 * time.Millisecond})

	body := h.login()
	assert.Contains(t, body, "Loading metrics...")
	assert.Contains(t, body, `http-equiv="refresh"`)

	close(release)
	require.Eventually(t, func() bool {
		return strings.Contains(h.tryGet("/"), "Total Revenue: $199.50")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestIntegration_ScenarioD_ChartServed(t *testing.T) {
	api := defaultAPI()
	var captured atomic.Value
	api.trends = func(w http.ResponseWriter, r *http.Request) {
		captured.Store(r.URL.Query())
		reply(http.StatusOK, `[{"date":"2024-01-01","orders":2,"revenue":50}]`)(w, r)
	}
	h := newHarness(t, api, handler.Options{})
	h.login()

	_, body := h.post("/dashboard/range", url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}})

	assert.Contains(t, body, `src="/dashboard/chart.svg?v=1"`)
	gotQuery, _ := captured.Load().(url.Values)
	assert.Equal(t, "2024-01-01", gotQuery.Get("startDate"))
	assert.Equal(t, "2024-01-31", gotQuery.Get("endDate"))
	assert.Equal(t, "sneha-xeno-store", gotQuery.Get("tenantId"))
	assert.Equal(t, 1, h.renderer.Live())
	assert.Equal(t, 1, h.metrics.LiveCharts())

	resp, svg := h.get("/dashboard/chart.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, svg, "Orders")

	resp, _ = h.get("/dashboard/chart.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestIntegration_ScenarioE_NonArrayTrends(t *testing.T) {
	api := defaultAPI()
	api.trends = reply(http.StatusOK, `{"error":"unexpected"}`)
	h := newHarness(t, api, handler.Options{})
	h.login()

	_, body := h.post("/dashboard/range", url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}})

	assert.Contains(t, body, "Select a date range to view trends")
	assert.Equal(t, 0, h.renderer.Live())

	resp, _ := h.get("/dashboard/chart.svg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_TrendsFailureShowsError(t *testing.T) {
	api := defaultAPI()
	api.trends = reply(http.StatusBadGateway, `{}`)
	h := newHarness(t, api, handler.Options{})
	h.login()

	_, body := h.post("/dashboard/range", url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}})

	assert.Contains(t, body, "Failed to fetch trends")
	assert.Contains(t, body, "Total Revenue: $199.50")
}

func TestIntegration_ChartReplacedNotLeaked(t *testing.T) {
	api := defaultAPI()
	api.trends = func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("endDate") == "2024-02-29" {
			reply(http.StatusOK, `[]`)(w, r)
			return
		}
		reply(http.StatusOK, `[{"date":"2024-01-01","orders":2,"revenue":50},{"date":"2024-01-02","orders":3,"revenue":70}]`)(w, r)
	}
	h := newHarness(t, api, handler.Options{})
	h.login()

	h.post("/dashboard/range", url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}})
	h.post("/dashboard/range", url.Values{"start": {"2024-01-01"}, "end": {"2024-01-30"}})
	assert.Equal(t, 1, h.renderer.Live())

	h.post("/dashboard/range", url.Values{"start": {"2024-02-01"}, "end": {"2024-02-29"}})
	assert.Equal(t, 0, h.renderer.Live())
}

func TestIntegration_RegisterFlow(t *testing.T) {
	api := defaultAPI()
	var gotTenant atomic.Value
	api.register = func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotTenant.Store(body["tenantId"])
		reply(http.StatusOK, `{"success":true}`)(w, r)
	}
	h := newHarness(t, api, handler.Options{})

	_, body := h.post("/toggle", nil)
	assert.Contains(t, body, `placeholder="Enter your name"`)
	assert.Contains(t, body, "Go to Login")

	_, body = h.post("/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret"}})

	assert.Equal(t, "default", gotTenant.Load())
	assert.Contains(t, body, "Registration successful! Please login.")
	assert.Contains(t, body, "Xeno FDE Internship Assignment")
	assert.Nil(t, h.cookie(session.TokenCookie))
}

func TestIntegration_RegisterRejected(t *testing.T) {
	api := defaultAPI()
	api.register = reply(http.StatusConflict, `{"error":"User already exists"}`)
	h := newHarness(t, api, handler.Options{})
	h.post("/toggle", nil)

	_, body := h.post("/register", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"secret"}})

	assert.Contains(t, body, "User already exists")
	assert.Contains(t, body, `placeholder="Enter your name"`)
}

func TestIntegration_DashboardJSON(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	resp, _ := h.get("/v1/dashboard")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.login()
	resp, body := h.get("/v1/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Settled bool `json:"settled"`
		Summary struct {
			TotalRevenue string `json:"totalRevenue"`
		} `json:"summary"`
		TopCustomers []any `json:"topCustomers"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.True(t, view.Settled)
	assert.Equal(t, "$199.50", view.Summary.TotalRevenue)
	assert.Empty(t, view.TopCustomers)
}

func TestIntegration_ChartWithoutSession(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	resp, _ := h.get("/dashboard/chart.svg")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_RestoreSession(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{RestoreSession: true})
	h.login()
	token := h.cookie(session.TokenCookie)
	require.NotNil(t, token)

	// A fresh browser that only kept the token cookie.
	h.browser = newBrowser(t)
	u, _ := url.Parse(h.server.URL)
	h.browser.Jar.SetCookies(u, []*http.Cookie{{Name: token.Name, Value: token.Value, Path: "/"}})

	_, body := h.get("/")

	assert.Contains(t, body, "Total Revenue: $199.50")
}

func TestIntegration_NoRestoreByDefault(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})
	h.login()
	token := h.cookie(session.TokenCookie)
	require.NotNil(t, token)

	h.browser = newBrowser(t)
	u, _ := url.Parse(h.server.URL)
	h.browser.Jar.SetCookies(u, []*http.Cookie{{Name: token.Name, Value: token.Value, Path: "/"}})

	_, body := h.get("/")

	assert.Contains(t, body, "Xeno FDE Internship Assignment")
}

func TestIntegration_Healthz(t *testing.T) {
	h := newHarness(t, defaultAPI(), handler.Options{})

	resp, body := h.get("/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"commerce-api"`)
	assert.Contains(t, body, `"status":"healthy"`)
}
