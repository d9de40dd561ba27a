package cubeviz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/seabed-data/cube.survey/internal/cube/grid"
)

// gridXYZ adapts a sampleGrid to plotter.GridXYZ, cell-centered on each
// node's world position.
type gridXYZ struct{ s *sampleGrid }

func (g gridXYZ) Dims() (c, r int)   { return int(g.s.counts.X), int(g.s.counts.Y) }
func (g gridXYZ) X(c int) float64    { return g.s.origin.X + float64(c)*float64(g.s.sizes.X) }
func (g gridXYZ) Y(r int) float64    { return g.s.origin.Y + float64(r)*float64(g.s.sizes.Y) }
func (g gridXYZ) Z(c, r int) float64 { return g.s.at(c, r) }

// hslPalette is a fixed-size color ramp generated the same way
// GridPlotter.generateColors builds its per-series azimuth palette, here
// swept across the hue wheel rather than across discrete series.
type hslPalette struct{ colors []color.Color }

func newHSLPalette(n int) hslPalette {
	if n < 2 {
		n = 2
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := 0.67 * (1 - float64(i)/float64(n-1)) // blue (lowest value) -> red (highest value)
		r, g, b := hslToRGB(hue, 0.75, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return hslPalette{colors: colors}
}

func (p hslPalette) Colors() []color.Color { return p.colors }

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// RenderPNG draws field's readback over g as a 14x6 inch heatmap PNG at
// path (grounded on GridPlotter.generateRingPlot's plot.New/Save pattern,
// adapted from per-azimuth line series to a single heatmap layer). The
// title carries the rendered value range since the sheet doesn't otherwise
// attach a colorbar legend.
func RenderPNG(g *grid.Grid, field Field, path string) error {
	s := newSampleGrid(g, field)
	min, max, ok := s.bounds()
	if !ok {
		min, max = 0, 1
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s [%.2f, %.2f]", worldTitle(g, field), min, max)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	h := plotter.NewHeatMap(gridXYZ{s: s}, newHSLPalette(64))
	h.Min, h.Max = min, max
	p.Add(h)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("cubeviz: save %s heatmap: %w", field, err)
	}
	return nil
}
