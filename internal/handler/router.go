package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/infra/session"
	"github.com/boddenberg/insights-bff-go/internal/port"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options tunes page rendering.
type Options struct {
	// RenderWait bounds how long a page waits for outstanding fetches
	// before rendering the loading state.
	RenderWait time.Duration
	// RestoreSession lets a new workspace pick up the token cookie.
	RestoreSession bool
}

// Deps are the collaborators the router serves from.
type Deps struct {
	Store    *service.WorkspaceStore
	Cookies  *session.Cookies
	Upstream port.Pinger
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps, opts Options) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Upstream, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- Workspace-scoped routes ---
	r.Group(func(r chi.Router) {
		r.Use(WorkspaceMiddleware(deps.Store, deps.Cookies, deps.Cookies, opts.RestoreSession, logger))

		// =============================================
		// Root view: login, register or dashboard
		// =============================================
		r.Get("/", indexHandler(opts, deps.Metrics, logger))
		r.Post("/login", loginHandler(deps.Cookies, logger))
		r.Post("/register", registerHandler(logger))
		r.Post("/toggle", toggleHandler())

		// =============================================
		// Dashboard
		// =============================================
		r.Post("/dashboard/range", dateRangeHandler())
		r.Get("/dashboard/chart.svg", chartHandler(formatSVG, logger))
		r.Get("/dashboard/chart.png", chartHandler(formatPNG, logger))

		r.Get("/v1/dashboard", dashboardJSONHandler(opts, logger))
	})

	r.Get("/v1/metrics/bff", bffMetricsHandler(deps.Metrics))

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(upstream port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "insights-bff", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if upstream != nil {
			start := time.Now()
			err := upstream.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: commerce api unreachable", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "commerce-api", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func bffMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
