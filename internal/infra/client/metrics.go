package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/insights-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// MetricsClient fetches the metrics summary.
type MetricsClient struct {
	upstream *upstream
	tenantID string
}

// GetSummary returns the tenant's summary. A JSON null payload yields (nil, nil).
func (c *MetricsClient) GetSummary(ctx context.Context, token string) (*domain.MetricsSummary, error) {
	ctx, span := tracer.Start(ctx, "MetricsClient.GetSummary")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", c.tenantID))

	query := url.Values{"tenantId": {c.tenantID}}

	result, err := c.upstream.call(ctx, "metrics", http.MethodGet, "/metrics", query, token, nil, func(resp *response) (any, error) {
		if !resp.ok() {
			return nil, &domain.ErrFetch{Resource: "metrics", Status: resp.status, Message: domain.MsgMetricsFailed}
		}
		v, err := decodeJSON(resp.body)
		if err != nil {
			return nil, &domain.ErrFetch{Resource: "metrics", Status: resp.status, Message: domain.MsgMetricsFailed}
		}
		return decodeSummary(v), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.MetricsSummary), nil
}

func decodeSummary(v any) *domain.MetricsSummary {
	if v == nil {
		return nil
	}
	data, ok := asObject(v)
	if !ok {
		return &domain.MetricsSummary{}
	}

	summary := &domain.MetricsSummary{
		TotalCustomers: optFloat(data, "totalCustomers"),
		TotalOrders:    optFloat(data, "totalOrders"),
		TotalRevenue:   optFloat(data, "totalRevenue"),
	}

	if list, ok := asArray(data["topCustomers"]); ok {
		summary.TopCustomers = make([]domain.TopCustomer, 0, len(list))
		for _, item := range list {
			c, _ := asObject(item)
			summary.TopCustomers = append(summary.TopCustomers, domain.TopCustomer{
				Name:       optString(c, "name"),
				Email:      optString(c, "email"),
				TotalSpent: optFloat(c, "totalSpent"),
			})
		}
	}
	return summary
}
