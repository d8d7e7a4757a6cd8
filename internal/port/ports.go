// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"io"
	"net/http"

	"github.com/boddenberg/insights-bff-go/internal/domain"
)

// AuthClient calls the upstream login and registration endpoints.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, name, email, password string) error
}

// MetricsClient fetches the metrics summary for a bearer token.
// A nil summary with a nil error means the payload was structurally absent.
type MetricsClient interface {
	GetSummary(ctx context.Context, token string) (*domain.MetricsSummary, error)
}

// TrendsClient fetches the time series for a date range.
type TrendsClient interface {
	GetTrends(ctx context.Context, token string, r domain.DateRange) ([]domain.TrendPoint, error)
}

// ChartRenderer constructs chart objects.
type ChartRenderer interface {
	NewChart(spec domain.ChartSpec) (ChartHandle, error)
}

// ChartHandle is a live chart object. Destroy releases it; using it afterwards
// returns domain.ErrChartReleased.
type ChartHandle interface {
	WriteSVG(w io.Writer) error
	WritePNG(w io.Writer) error
	Destroy()
}

// TokenStore persists the bearer token on the client under a fixed key.
type TokenStore interface {
	SaveToken(w http.ResponseWriter, token string) error
	LoadToken(r *http.Request) (string, bool)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}
