// Package chart renders line charts with go-chart and tracks how many chart
// objects are alive.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/boddenberg/insights-bff-go/internal/domain"
	"github.com/boddenberg/insights-bff-go/internal/port"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptyChart is returned when asked to build a chart without points.
var ErrEmptyChart = errors.New("chart has no points")

// Observer is notified when chart objects are created and destroyed.
type Observer interface {
	ChartCreated()
	ChartDestroyed()
}

// Renderer builds chart objects. It is safe for concurrent use.
type Renderer struct {
	live     atomic.Int64
	observer Observer
}

// NewRenderer creates a renderer. observer may be nil.
func NewRenderer(observer Observer) *Renderer {
	return &Renderer{observer: observer}
}

// Live returns how many chart objects have been created and not yet destroyed.
func (r *Renderer) Live() int {
	return int(r.live.Load())
}

// NewChart builds a chart object from spec and draws it once so that a spec
// go-chart cannot render fails here rather than when served.
func (r *Renderer) NewChart(spec domain.ChartSpec) (port.ChartHandle, error) {
	if spec.Points() == 0 {
		return nil, ErrEmptyChart
	}

	c := build(spec)

	var svg bytes.Buffer
	if err := c.Render(gochart.SVG, &svg); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	r.live.Add(1)
	if r.observer != nil {
		r.observer.ChartCreated()
	}
	return &Handle{chart: c, svg: svg.Bytes(), renderer: r}, nil
}

func (r *Renderer) destroyed() {
	r.live.Add(-1)
	if r.observer != nil {
		r.observer.ChartDestroyed()
	}
}

// Handle is one live chart object.
type Handle struct {
	mu       sync.Mutex
	chart    gochart.Chart
	svg      []byte
	released bool
	renderer *Renderer
}

// WriteSVG writes the drawn chart as SVG.
func (h *Handle) WriteSVG(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return domain.ErrChartReleased
	}
	_, err := w.Write(h.svg)
	return err
}

// WritePNG renders the chart as PNG.
func (h *Handle) WritePNG(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return domain.ErrChartReleased
	}
	return h.chart.Render(gochart.PNG, w)
}

// Destroy releases the chart object. It is idempotent.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return
	}
	h.released = true
	h.svg = nil
	h.chart = gochart.Chart{}
	h.renderer.destroyed()
}

func build(spec domain.ChartSpec) gochart.Chart {
	n := spec.Points()

	xs := make([]float64, n)
	ticks := make([]gochart.Tick, 0, n+2)
	for i, label := range spec.Labels {
		xs[i] = float64(i)
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
	}
	// go-chart derives the x range from the ticks; a single point needs room
	// on both sides or the range collapses to zero.
	if n == 1 {
		ticks = append([]gochart.Tick{{Value: -0.5}}, append(ticks, gochart.Tick{Value: 0.5})...)
	}

	series := make([]gochart.Series, 0, len(spec.Datasets))
	yMax := 0.0
	for _, ds := range spec.Datasets {
		style := gochart.Style{
			StrokeColor: toDrawing(ds.BorderColor),
			StrokeWidth: 2,
			DotColor:    toDrawing(ds.BorderColor),
			DotWidth:    3,
		}
		if ds.Fill {
			style.FillColor = toDrawing(ds.BackgroundColor)
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ds.Data,
			Style:   style,
		})
		for _, v := range ds.Data {
			yMax = math.Max(yMax, v)
		}
	}

	yAxis := gochart.YAxis{}
	if spec.YBeginAtZero {
		if yMax <= 0 {
			yMax = 1
		}
		yAxis.Range = &gochart.ContinuousRange{Min: 0, Max: yMax * 1.05}
	}

	c := gochart.Chart{
		Width:  spec.Width,
		Height: spec.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis:  gochart.XAxis{Ticks: ticks},
		YAxis:  yAxis,
		Series: series,
	}
	if spec.LegendPosition == "top" {
		c.Elements = []gochart.Renderable{gochart.LegendThin(&c)}
	} else {
		c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	}
	return c
}

func toDrawing(c color.RGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
