package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/config"
	"github.com/boddenberg/insights-bff-go/internal/handler"
	"github.com/boddenberg/insights-bff-go/internal/infra/chart"
	"github.com/boddenberg/insights-bff-go/internal/infra/client"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/infra/resilience"
	"github.com/boddenberg/insights-bff-go/internal/infra/session"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("api_url", cfg.APIURL),
		zap.String("tenant_id", cfg.TenantID),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("restore_session", cfg.RestoreSession),
		zap.Duration("render_wait", cfg.RenderWait),
	)
	if cfg.SessionSecret == config.DefaultSessionSecret {
		logger.Warn("SESSION_SECRET not set, using the development default")
	}

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "insights-bff")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	cb := resilience.NewCircuitBreaker("commerce-api")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	upstream := client.New(httpClient, cb, client.Options{
		BaseURL:          cfg.APIURL,
		TenantID:         cfg.TenantID,
		RegisterTenantID: cfg.RegisterTenantID,
		Resilience:       resilience.Config{MaxConcurrency: cfg.MaxConcurrency},
	})

	// --- Services ---
	authSvc := service.NewAuthService(upstream.Auth, metrics, logger)
	dashboardDeps := service.DashboardDeps{
		Metrics:     service.NewMetricsFetcher(upstream.Metrics, metrics, logger),
		Trends:      service.NewTrendsFetcher(upstream.Trends, metrics, logger),
		Renderer:    chart.NewRenderer(metrics),
		ChartWidth:  cfg.ChartWidth,
		ChartHeight: cfg.ChartHeight,
		Logger:      logger,
	}
	store := service.NewWorkspaceStore(cfg.SessionTTL, func(id string) *service.Workspace {
		return service.NewWorkspace(id, authSvc, dashboardDeps)
	}, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Store: store,
		Cookies: session.New(session.Options{
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.CookieSecure,
		}),
		Upstream: upstream,
		Metrics:  metrics,
		Logger:   logger,
	}, handler.Options{
		RenderWait:     cfg.RenderWait,
		RestoreSession: cfg.RestoreSession,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		store.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}
