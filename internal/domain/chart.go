package domain

import "image/color"

// ChartSpec describes a line chart independently of the rendering library.
type ChartSpec struct {
	Width          int
	Height         int
	Labels         []string
	Datasets       []Dataset
	YBeginAtZero   bool
	LegendPosition string
}

// Dataset is one labelled series sharing the chart's x-axis labels.
type Dataset struct {
	Label           string
	Data            []float64
	BorderColor     color.RGBA
	BackgroundColor color.RGBA
	Fill            bool
}

// Points returns the number of x positions in the chart.
func (s ChartSpec) Points() int {
	return len(s.Labels)
}
