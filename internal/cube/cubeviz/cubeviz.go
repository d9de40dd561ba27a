// Package cubeviz renders a Grid's depth/uncertainty readback for quick
// visual inspection: a PNG heatmap via gonum/plot, or an HTML heatmap via
// go-echarts for interactive zoom/pan (SPEC_FULL.md §11; debugging-only,
// not part of the estimation core).
package cubeviz

import (
	"fmt"
	"math"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
)

// Field selects which of a Grid's two readback channels to render.
type Field int

const (
	FieldDepth Field = iota
	FieldUncertainty
)

func (f Field) String() string {
	if f == FieldUncertainty {
		return "uncertainty"
	}
	return "depth"
}

// sampleGrid is a row-major depth/uncertainty readback paired with its cell
// geometry, shared by both the PNG and HTML renderers so they sample
// identically (row 0 at the Grid's origin corner, per DESIGN.md's Grid.Values
// row-ordering decision).
type sampleGrid struct {
	values []grid.DepthAndUncertainty
	counts geometry.CellCounts
	sizes  geometry.CellSizes
	origin geometry.MapPosition
	field  Field
}

func newSampleGrid(g *grid.Grid, field Field) *sampleGrid {
	return &sampleGrid{
		values: g.Values(),
		counts: g.Counts,
		sizes:  g.Sizes,
		origin: g.Origin,
		field:  field,
	}
}

func (s *sampleGrid) at(col, row int) float64 {
	v := s.values[row*int(s.counts.X)+col]
	if s.field == FieldUncertainty {
		return v.Uncertainty
	}
	return v.Depth
}

// bounds returns the finite min/max of the selected field, skipping NaN
// cells. ok is false if every cell is NaN (nothing touched yet).
func (s *sampleGrid) bounds() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for i := range s.values {
		v := s.at(i%int(s.counts.X), i/int(s.counts.X))
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}

func worldTitle(g *grid.Grid, field Field) string {
	b := g.Bounds()
	return fmt.Sprintf("%s, origin (%.1f, %.1f) to (%.1f, %.1f)", field, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
}
