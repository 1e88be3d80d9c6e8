package presentation

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"go-skin-inspector/internal/view"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoChart is returned before any metrics have been shown
var ErrNoChart = errors.New("no chart to render")

// RenderChartPNG draws chart as a line chart on a 0-100 scale
func RenderChartPNG(chart *view.Chart, width, height vg.Length) ([]byte, error) {
	if chart == nil || len(chart.Values) == 0 {
		return nil, ErrNoChart
	}

	p := plot.New()
	p.Title.Text = "Skin analysis"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 100
	for _, v := range chart.Values {
		if v > p.Y.Max {
			p.Y.Max = v
		}
	}

	pts := make(plotter.XYs, len(chart.Values))
	for i, v := range chart.Values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("build chart series: %w", err)
	}
	line.Color = color.RGBA{R: 0x4a, G: 0x90, B: 0xe2, A: 255}
	points.Color = line.Color

	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(chart.Labels...)

	w, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
