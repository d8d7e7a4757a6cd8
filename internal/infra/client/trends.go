package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/insights-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// TrendsClient fetches the orders/revenue time series.
type TrendsClient struct {
	upstream *upstream
	tenantID string
}

// GetTrends returns the points for the range in server order. Payloads that are
// not a JSON array yield an empty, non-nil slice.
func (c *TrendsClient) GetTrends(ctx context.Context, token string, r domain.DateRange) ([]domain.TrendPoint, error) {
	ctx, span := tracer.Start(ctx, "TrendsClient.GetTrends")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", c.tenantID),
		attribute.String("range.start", r.Start),
		attribute.String("range.end", r.End),
	)

	query := url.Values{
		"tenantId":  {c.tenantID},
		"startDate": {r.Start},
		"endDate":   {r.End},
	}

	result, err := c.upstream.call(ctx, "trends", http.MethodGet, "/metrics/trends", query, token, nil, func(resp *response) (any, error) {
		if !resp.ok() {
			return nil, &domain.ErrFetch{Resource: "trends", Status: resp.status, Message: domain.MsgTrendsFailed}
		}
		v, err := decodeJSON(resp.body)
		if err != nil {
			return nil, &domain.ErrFetch{Resource: "trends", Status: resp.status, Message: domain.MsgTrendsFailed}
		}
		return decodeTrends(v), nil
	})
	if err != nil {
		return nil, err
	}
	points := result.([]domain.TrendPoint)
	span.SetAttributes(attribute.Int("trends.points", len(points)))
	return points, nil
}

func decodeTrends(v any) []domain.TrendPoint {
	list, ok := asArray(v)
	if !ok {
		return []domain.TrendPoint{}
	}
	points := make([]domain.TrendPoint, 0, len(list))
	for _, item := range list {
		p, _ := asObject(item)
		points = append(points, domain.TrendPoint{
			Date:    stringOr(p, "date", ""),
			Orders:  floatOr(p, "orders", 0),
			Revenue: floatOr(p, "revenue", 0),
		})
	}
	return points
}
