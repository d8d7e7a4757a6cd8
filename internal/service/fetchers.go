package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/infra/observability"
	"github.com/boddenberg/insights-bff-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/dashboard")

// MetricsFetcher loads the metrics summary for a session token.
// Concurrent loads for the same token share one upstream request.
type MetricsFetcher struct {
	client  port.MetricsClient
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewMetricsFetcher creates a metrics fetcher.
func NewMetricsFetcher(client port.MetricsClient, metrics *observability.Metrics, logger *zap.Logger) *MetricsFetcher {
	return &MetricsFetcher{client: client, metrics: metrics, logger: logger}
}

// Fetch returns the summary, or nil when the API answered with no metrics.
func (f *MetricsFetcher) Fetch(ctx context.Context, token string) (*domain.MetricsSummary, error) {
	ctx, span := tracer.Start(ctx, "MetricsFetcher.Fetch")
	defer span.End()

	start := time.Now()
	v, err, shared := f.group.Do(token, func() (any, error) {
		return f.client.GetSummary(ctx, token)
	})
	f.metrics.RecordRequestDuration("metrics", time.Since(start))
	f.metrics.RecordFetch("metrics", err)
	span.SetAttributes(attribute.Bool("shared", shared))

	if err != nil {
		recordFailure(f.metrics, f.logger, "metrics", err)
		return nil, err
	}

	summary, _ := v.(*domain.MetricsSummary)
	return summary, nil
}

// TrendsFetcher loads the trend sequence for a date range.
type TrendsFetcher struct {
	client  port.TrendsClient
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTrendsFetcher creates a trends fetcher.
func NewTrendsFetcher(client port.TrendsClient, metrics *observability.Metrics, logger *zap.Logger) *TrendsFetcher {
	return &TrendsFetcher{client: client, metrics: metrics, logger: logger}
}

// Fetch returns the trend points in server order.
func (f *TrendsFetcher) Fetch(ctx context.Context, token string, r domain.DateRange) ([]domain.TrendPoint, error) {
	ctx, span := tracer.Start(ctx, "TrendsFetcher.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("range.start", r.Start),
		attribute.String("range.end", r.End),
	)

	start := time.Now()
	points, err := f.client.GetTrends(ctx, token, r)
	f.metrics.RecordRequestDuration("trends", time.Since(start))
	f.metrics.RecordFetch("trends", err)

	if err != nil {
		recordFailure(f.metrics, f.logger, "trends", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}

func recordFailure(metrics *observability.Metrics, logger *zap.Logger, service string, err error) {
	var network *domain.ErrNetwork
	if errors.As(err, &network) {
		metrics.IncrUpstreamError(service)
		logger.Error("upstream unreachable",
			zap.String("service", service),
			zap.Error(err),
		)
		return
	}
	logger.Warn("upstream rejected fetch",
		zap.String("service", service),
		zap.Error(err),
	)
}
