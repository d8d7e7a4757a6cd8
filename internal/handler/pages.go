package handler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/port"
	"github.com/boddenberg/insights-bff-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Refresh   bool
	Register  bool
	State     service.WorkspaceState
	Dashboard *service.DashboardView
}

// settle waits up to budget for the dashboard's fetches and reports whether
// it went idle.
func settle(ctx context.Context, d *service.Dashboard, budget time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return d.WaitIdle(ctx)
}

func renderPage(w http.ResponseWriter, name string, data pageData, logger *zap.Logger) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("render page failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeBody(w, "text/html; charset=utf-8", &buf)
}

// ============================================================
// Root view: GET /
// ============================================================

func indexHandler(opts Options, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /")
		defer span.End()

		start := time.Now()
		defer func() {
			metrics.RecordRequestDuration("render", time.Since(start))
		}()

		ws := WorkspaceFromContext(ctx)
		st := ws.State()
		span.SetAttributes(attribute.Bool("authenticated", st.Authenticated))

		if !st.Authenticated {
			renderPage(w, "auth", pageData{
				Register: st.Mode == service.ModeRegister,
				State:    st,
			}, logger)
			return
		}

		if ws.Reload(ctx) {
			logger.Debug("dashboard remounted after failed metrics", zap.String("workspace_id", ws.ID))
		}
		d := ws.Dashboard()
		idle := settle(ctx, d, opts.RenderWait)
		view := d.View()
		renderPage(w, "dashboard", pageData{
			Refresh:   !idle,
			State:     st,
			Dashboard: &view,
		}, logger)
	}
}

// ============================================================
// Auth forms: POST /login, /register, /toggle
// ============================================================

func loginHandler(tokens port.TokenStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		ws := WorkspaceFromContext(ctx)
		session, err := ws.Login(ctx, r.PostForm.Get("email"), r.PostForm.Get("password"))
		if err != nil {
			logger.Debug("login rejected", zap.String("workspace_id", ws.ID), zap.Error(err))
			redirectHome(w, r)
			return
		}

		if err := tokens.SaveToken(w, session.Token); err != nil {
			logger.Error("persist token failed", zap.String("workspace_id", ws.ID), zap.Error(err))
		}
		redirectHome(w, r)
	}
}

func registerHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /register")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		ws := WorkspaceFromContext(ctx)
		err := ws.Register(ctx, r.PostForm.Get("name"), r.PostForm.Get("email"), r.PostForm.Get("password"))
		if err != nil {
			logger.Debug("registration rejected", zap.String("workspace_id", ws.ID), zap.Error(err))
		}
		redirectHome(w, r)
	}
}

func toggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WorkspaceFromContext(r.Context()).Toggle()
		redirectHome(w, r)
	}
}

// ============================================================
// Dashboard: POST /dashboard/range, GET /dashboard/chart.*
// ============================================================

func dateRangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /dashboard/range")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		if d := WorkspaceFromContext(ctx).Dashboard(); d != nil {
			d.SetDateRange(ctx, domain.DateRange{
				Start: r.PostForm.Get("start"),
				End:   r.PostForm.Get("end"),
			})
		}
		redirectHome(w, r)
	}
}

type chartFormat int

const (
	formatSVG chartFormat = iota
	formatPNG
)

func chartHandler(format chartFormat, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := WorkspaceFromContext(r.Context()).Dashboard()
		if d == nil {
			http.NotFound(w, r)
			return
		}

		var (
			buf         bytes.Buffer
			err         error
			contentType string
		)
		switch format {
		case formatPNG:
			contentType = "image/png"
			err = d.Surface().WritePNG(&buf)
		default:
			contentType = "image/svg+xml"
			err = d.Surface().WriteSVG(&buf)
		}

		if errors.Is(err, service.ErrNoChart) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeBody(w, contentType, &buf)
	}
}

// ============================================================
// JSON view: GET /v1/dashboard
// ============================================================

type dashboardResponse struct {
	Settled bool `json:"settled"`
	service.DashboardView
}

func dashboardJSONHandler(opts Options, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		d := WorkspaceFromContext(ctx).Dashboard()
		if d == nil {
			handleServiceError(w, &domain.ErrSessionRequired{}, logger)
			return
		}

		idle := settle(ctx, d, opts.RenderWait)
		writeJSON(w, http.StatusOK, dashboardResponse{Settled: idle, DashboardView: d.View()})
	}
}
