// Package report renders the diagnostic charts of a training run as
// base64-encoded PNG images.
package report

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// Renderer turns chart data into an encoded image.
type Renderer interface {
	// BarChart draws one bar per label.
	BarChart(title string, labels []string, values []float64) (string, error)
	// Scatter plots predicted against actual values with a dashed identity
	// line from lineMin to lineMax.
	Scatter(title string, actual, predicted []float64, lineMin, lineMax float64) (string, error)
}

// PNGRenderer draws charts with gonum/plot and returns base64 PNG data.
type PNGRenderer struct {
	Width  vg.Length
	Height vg.Length
}

// NewPNGRenderer returns a renderer producing 6×4 inch images.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Width: 6 * vg.Inch, Height: 4 * vg.Inch}
}

// BarChart implements Renderer. Non-finite values are drawn as zero-height bars.
func (r *PNGRenderer) BarChart(title string, labels []string, values []float64) (string, error) {
	if len(labels) != len(values) {
		return "", errors.NewDimensionError("BarChart", len(labels), len(values), 0)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "R2 Score"

	vals := make(plotter.Values, len(values))
	for i, v := range values {
		if isFinite(v) {
			vals[i] = v
		}
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return "", errors.Wrap(err, "bar chart")
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(bars)
	p.NominalX(labels...)
	return r.encode(p)
}

// Scatter implements Renderer. Pairs with a non-finite coordinate are skipped.
func (r *PNGRenderer) Scatter(title string, actual, predicted []float64, lineMin, lineMax float64) (string, error) {
	if len(actual) != len(predicted) {
		return "", errors.NewDimensionError("Scatter", len(actual), len(predicted), 0)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	pts := make(plotter.XYs, 0, len(actual))
	for i := range actual {
		if isFinite(actual[i]) && isFinite(predicted[i]) {
			pts = append(pts, plotter.XY{X: actual[i], Y: predicted[i]})
		}
	}
	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return "", errors.Wrap(err, "scatter")
		}
		s.GlyphStyle.Color = color.RGBA{R: 70, G: 130, B: 180, A: 180}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
	}

	if isFinite(lineMin) && isFinite(lineMax) {
		line, err := plotter.NewLine(plotter.XYs{{X: lineMin, Y: lineMin}, {X: lineMax, Y: lineMax}})
		if err != nil {
			return "", errors.Wrap(err, "identity line")
		}
		line.LineStyle.Color = color.Black
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(line)
	}
	return r.encode(p)
}

func (r *PNGRenderer) encode(p *plot.Plot) (string, error) {
	c := vgimg.New(r.Width, r.Height)
	p.Draw(draw.New(c))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(&buf); err != nil {
		return "", errors.Wrap(err, "encode png")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Nop is a Renderer that draws nothing and returns empty strings.
type Nop struct{}

func (Nop) BarChart(string, []string, []float64) (string, error) { return "", nil }

func (Nop) Scatter(string, []float64, []float64, float64, float64) (string, error) {
	return "", nil
}
