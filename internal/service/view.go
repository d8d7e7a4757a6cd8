package service

import (
	"github.com/boddenberg/insights-bff-go/internal/domain"

	"github.com/shopspring/decimal"
)

// DashboardView is the render-ready state of a dashboard. Defaults for
// missing metrics fields are applied here, never when decoding.
type DashboardView struct {
	MetricsStatus string         `json:"metricsStatus"`
	MetricsError  string         `json:"metricsError,omitempty"`
	NoMetrics     bool           `json:"noMetrics"`
	Summary       *SummaryView   `json:"summary,omitempty"`
	TopCustomers  []CustomerView `json:"topCustomers"`

	DateRange     domain.DateRange `json:"dateRange"`
	TrendsStatus  string           `json:"trendsStatus"`
	TrendsLoading bool             `json:"trendsLoading"`
	TrendsError   string           `json:"trendsError,omitempty"`
	TrendPoints   int              `json:"trendPoints"`
	HasChart      bool             `json:"hasChart"`
	ChartVersion  uint64           `json:"chartVersion"`
}

// Loading reports whether the metrics request is still outstanding.
func (v DashboardView) Loading() bool {
	return v.MetricsStatus == FetchLoading.String()
}

// SummaryView holds formatted totals.
type SummaryView struct {
	TotalCustomers string `json:"totalCustomers"`
	TotalOrders    string `json:"totalOrders"`
	TotalRevenue   string `json:"totalRevenue"`
}

// CustomerView is one formatted top-customer row.
type CustomerView struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	TotalSpent string `json:"totalSpent"`
}

// View snapshots the dashboard for rendering and records that a metrics
// failure has reached the user.
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := DashboardView{
		MetricsStatus: d.metricsStatus.String(),
		DateRange:     d.dateRange,
		TrendsStatus:  d.trendsStatus.String(),
		TrendsLoading: d.trendsPending > 0,
		TrendPoints:   len(d.trends),
		HasChart:      d.surface.Drawn(),
		ChartVersion:  d.surface.Version(),
		TopCustomers:  []CustomerView{},
	}

	switch d.metricsStatus {
	case FetchFailed:
		v.MetricsError = domain.UserMessage(d.metricsErr)
		d.failureShown = true
	case FetchSucceeded:
		if d.summary == nil {
			v.NoMetrics = true
		} else {
			summary, customers := formatSummary(d.summary)
			v.Summary = &summary
			v.TopCustomers = customers
		}
	}

	if d.trendsErr != nil {
		v.TrendsError = domain.UserMessage(d.trendsErr)
	}
	return v
}

func formatSummary(m *domain.MetricsSummary) (SummaryView, []CustomerView) {
	summary := SummaryView{
		TotalCustomers: formatNumber(m.TotalCustomers),
		TotalOrders:    formatNumber(m.TotalOrders),
		TotalRevenue:   formatMoney(m.TotalRevenue),
	}

	top := m.TopCustomers
	if len(top) > domain.MaxTopCustomers {
		top = top[:domain.MaxTopCustomers]
	}
	customers := make([]CustomerView, 0, len(top))
	for _, c := range top {
		customers = append(customers, CustomerView{
			Name:       textOr(c.Name, "Unknown"),
			Email:      textOr(c.Email, "N/A"),
			TotalSpent: formatMoney(c.TotalSpent),
		})
	}
	return summary, customers
}

func formatNumber(v *float64) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromFloat(*v).String()
}

// formatMoney rounds the exact binary value of v, so 1.005 (stored as
// 1.00499...) renders as $1.00.
func formatMoney(v *float64) string {
	amount := decimal.Zero
	if v != nil {
		amount = decimal.NewFromFloatWithExponent(*v, -moneyExactDigits)
	}
	return "$" + amount.StringFixed(2)
}

// moneyExactDigits keeps enough fractional digits of a float64 to tell a
// true half-cent tie from a value just below it.
const moneyExactDigits = 40

func textOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
