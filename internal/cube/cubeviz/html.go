package cubeviz

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/seabed-data/cube.survey/internal/cube/grid"
)

// DefaultMaxPoints bounds the number of cells rendered before RenderHTML
// starts downsampling by stride, matching handleBackgroundGridPolar's
// max_points default.
const DefaultMaxPoints = 8000

// RenderHTML writes an interactive HTML heatmap of field's readback over g
// to w. Grounded on handleBackgroundHeatmap's scatter-plus-VisualMap
// pattern: go-echarts' color-by-value effect there comes from a Scatter
// series with a VisualMap bound to the point's third value dimension, not
// from the library's distinct HeatMap chart type, so cubeviz follows the
// same construction. maxPoints <= 0 uses DefaultMaxPoints; cells beyond it
// are stride-downsampled.
func RenderHTML(g *grid.Grid, field Field, w io.Writer, maxPoints int) error {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}

	s := newSampleGrid(g, field)
	nx, ny := int(s.counts.X), int(s.counts.Y)
	total := nx * ny

	stride := 1
	if total > maxPoints {
		stride = int(math.Ceil(float64(total) / float64(maxPoints)))
	}

	min, max, ok := s.bounds()
	if !ok {
		min, max = 0, 1
	}

	points := make([]opts.ScatterData, 0, total/stride+1)
	for row := 0; row < ny; row += stride {
		for col := 0; col < nx; col += stride {
			v := s.at(col, row)
			if math.IsNaN(v) {
				continue
			}
			x := s.origin.X + float64(col)*float64(s.sizes.X)
			y := s.origin.Y + float64(row)*float64(s.sizes.Y)
			points = append(points, opts.ScatterData{Value: []interface{}{x, y, v}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Grid heatmap", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Grid " + field.String(), Subtitle: fmt.Sprintf("cells=%d stride=%d", len(points), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries(field.String(), points, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	return scatter.Render(w)
}
