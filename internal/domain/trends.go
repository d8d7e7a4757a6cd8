package domain

// DateRange is the user-selected trends window. Bounds are date strings
// (YYYY-MM-DD) or empty.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Complete reports whether both bounds are set.
func (r DateRange) Complete() bool {
	return r.Start != "" && r.End != ""
}

// TrendPoint is one dated observation of orders and revenue.
type TrendPoint struct {
	Date    string  `json:"date"`
	Orders  float64 `json:"orders"`
	Revenue float64 `json:"revenue"`
}
