package domain

// MetricsSummary is the pre-aggregated summary returned by GET /metrics.
// Every field is optional: absent or malformed values stay nil and are
// defaulted when rendered.
type MetricsSummary struct {
	TotalCustomers *float64      `json:"totalCustomers,omitempty"`
	TotalOrders    *float64      `json:"totalOrders,omitempty"`
	TotalRevenue   *float64      `json:"totalRevenue,omitempty"`
	TopCustomers   []TopCustomer `json:"topCustomers,omitempty"`
}

// TopCustomer is one entry of the top-customers-by-spend list.
type TopCustomer struct {
	Name       *string  `json:"name,omitempty"`
	Email      *string  `json:"email,omitempty"`
	TotalSpent *float64 `json:"totalSpent,omitempty"`
}

// MaxTopCustomers is how many top customers the dashboard lists.
const MaxTopCustomers = 5
