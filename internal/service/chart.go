package service

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/port"
)

// ErrNoChart is returned when a surface has nothing drawn on it.
var ErrNoChart = errors.New("no chart drawn")

var (
	ordersColor  = color.RGBA{R: 0x38, G: 0x97, B: 0xf0, A: 0xff}
	ordersFill   = color.RGBA{R: 56, G: 151, B: 240, A: 26}
	revenueColor = color.RGBA{R: 0x27, G: 0xae, B: 0x60, A: 0xff}
	revenueFill  = color.RGBA{R: 39, G: 174, B: 96, A: 26}
)

// NewTrendChartSpec maps a trend sequence to the Orders/Revenue line chart.
func NewTrendChartSpec(points []domain.TrendPoint, width, height int) domain.ChartSpec {
	labels := make([]string, len(points))
	orders := make([]float64, len(points))
	revenue := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Date
		orders[i] = p.Orders
		revenue[i] = p.Revenue
	}

	return domain.ChartSpec{
		Width:  width,
		Height: height,
		Labels: labels,
		Datasets: []domain.Dataset{
			{Label: "Orders", Data: orders, BorderColor: ordersColor, BackgroundColor: ordersFill, Fill: true},
			{Label: "Revenue", Data: revenue, BorderColor: revenueColor, BackgroundColor: revenueFill, Fill: true},
		},
		YBeginAtZero:   true,
		LegendPosition: "top",
	}
}

// ChartSurface owns at most one chart object at a time.
type ChartSurface struct {
	mu       sync.Mutex
	renderer port.ChartRenderer
	width    int
	height   int
	handle   port.ChartHandle
	version  uint64
	closed   bool
}

// NewChartSurface creates an empty surface of the given size.
func NewChartSurface(renderer port.ChartRenderer, width, height int) *ChartSurface {
	return &ChartSurface{renderer: renderer, width: width, height: height}
}

// Redraw destroys the current chart, then builds a new one from points.
// An empty sequence leaves the surface blank.
func (s *ChartSurface) Redraw(points []domain.TrendPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSurfaceClosed
	}

	s.destroyLocked()
	s.version++

	if len(points) == 0 {
		return nil
	}

	h, err := s.renderer.NewChart(NewTrendChartSpec(points, s.width, s.height))
	if err != nil {
		return fmt.Errorf("new chart: %w", err)
	}
	s.handle = h
	return nil
}

// Release destroys the current chart and closes the surface.
func (s *ChartSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyLocked()
	s.closed = true
}

func (s *ChartSurface) destroyLocked() {
	if s.handle != nil {
		s.handle.Destroy()
		s.handle = nil
	}
}

// Drawn reports whether a chart object is live on the surface.
func (s *ChartSurface) Drawn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Version increments on every redraw.
func (s *ChartSurface) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// WriteSVG writes the current chart as SVG.
func (s *ChartSurface) WriteSVG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return ErrNoChart
	}
	return s.handle.WriteSVG(w)
}

// WritePNG writes the current chart as PNG.
func (s *ChartSurface) WritePNG(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return ErrNoChart
	}
	return s.handle.WritePNG(w)
}
