// Package mapsheet implements C4: an open-ended grid of Grids, lazily
// created as soundings arrive, letting a surface grow without the caller
// knowing its extent ahead of time.
package mapsheet

import (
	"time"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

// MapSheet is a sparse, open-ended grid of Grid tiles (C4).
type MapSheet struct {
	counts geometry.CellCounts
	sizes  geometry.CellSizes

	parameters *params.Parameters

	grids map[geometry.GridIndex]*grid.Grid

	lastUpdateTime time.Time
}

// New returns an empty MapSheet. counts and sizes describe every Grid
// tile created under it; parameters is shared read-only across every
// tile (spec.md §5).
func New(counts geometry.CellCounts, sizes geometry.CellSizes, parameters *params.Parameters) *MapSheet {
	return &MapSheet{
		counts:     counts,
		sizes:      sizes,
		parameters: parameters,
		grids:      make(map[geometry.GridIndex]*grid.Grid),
	}
}

// CellSizes reports the per-node spacing shared by every tile.
func (m *MapSheet) CellSizes() geometry.CellSizes { return m.sizes }

// CellCountsPerGrid reports the fixed tile dimensions, in nodes.
func (m *MapSheet) CellCountsPerGrid() geometry.CellCounts { return m.counts }

// tileWorldSize is the world-space footprint of one Grid tile.
func (m *MapSheet) tileWorldSize() geometry.MapOffset {
	return geometry.TileWorldSize(m.sizes, m.counts)
}

// AddSoundings dispatches soundings to every Grid tile their combined
// bounds touch, creating tiles as necessary, and advances lastUpdateTime
// only if at least one tile actually used a sounding (spec.md §9 Open
// Question 1 — the intended behavior, not the reference's
// always-advance bug).
func (m *MapSheet) AddSoundings(soundings []grid.Sounding, t time.Time) {
	if len(soundings) == 0 {
		return
	}

	var bounds geometry.MapBounds
	for _, s := range soundings {
		bounds = bounds.Expand(geometry.MapPosition{X: s.X, Y: s.Y})
	}

	used := false
	for _, g := range m.GetOrCreateGridsIn(bounds) {
		if g.InsertBatch(soundings) {
			used = true
		}
	}
	if used {
		m.lastUpdateTime = t
	}
}

// GetOrCreateGridsIn returns every Grid tile intersecting bounds,
// creating tiles that do not yet exist (spec.md §4.4).
func (m *MapSheet) GetOrCreateGridsIn(bounds geometry.MapBounds) []*grid.Grid {
	if !bounds.Valid() {
		return nil
	}

	tile := m.tileWorldSize()
	minIndex := geometry.FloorDivideIndex(bounds.Min, tile)
	maxIndex := geometry.FloorDivideIndex(bounds.Max, tile)

	var ret []*grid.Grid
	for row := minIndex.Y; row <= maxIndex.Y; row++ {
		for col := minIndex.X; col <= maxIndex.X; col++ {
			idx := geometry.GridIndex{X: col, Y: row}
			g, ok := m.grids[idx]
			if !ok {
				origin := geometry.Origin(idx, m.sizes, m.counts)
				g = grid.New(m.counts, m.sizes, origin, m.parameters)
				m.grids[idx] = g
			}
			ret = append(ret, g)
		}
	}
	return ret
}

// Grids returns every Grid tile created so far, in unspecified order.
func (m *MapSheet) Grids() []*grid.Grid {
	ret := make([]*grid.Grid, 0, len(m.grids))
	for _, g := range m.grids {
		ret = append(ret, g)
	}
	return ret
}

// TotalCellCounts reports the node dimensions of the smallest rectangle
// of whole tiles containing every created Grid.
func (m *MapSheet) TotalCellCounts() geometry.CellCounts {
	if len(m.grids) == 0 {
		return geometry.CellCounts{}
	}

	minX, minY := int32(0), int32(0)
	maxX, maxY := int32(0), int32(0)
	first := true
	for idx := range m.grids {
		if first {
			minX, maxX = idx.X, idx.X
			minY, maxY = idx.Y, idx.Y
			first = false
			continue
		}
		if idx.X < minX {
			minX = idx.X
		}
		if idx.X > maxX {
			maxX = idx.X
		}
		if idx.Y < minY {
			minY = idx.Y
		}
		if idx.Y > maxY {
			maxY = idx.Y
		}
	}

	return geometry.CellCounts{
		X: uint32(maxX-minX+1) * m.counts.X,
		Y: uint32(maxY-minY+1) * m.counts.Y,
	}
}

// GridBounds reports the world-space rectangle covered by every created
// Grid tile.
func (m *MapSheet) GridBounds() geometry.MapBounds {
	var ret geometry.MapBounds
	for _, g := range m.grids {
		b := g.Bounds()
		ret = ret.Expand(b.Min).Expand(b.Max)
	}
	return ret
}

// GridIndex reports which tile index would own position, whether or not
// that tile has been created yet.
func (m *MapSheet) GridIndex(position geometry.MapPosition) geometry.GridIndex {
	return geometry.FloorDivideIndex(position, m.tileWorldSize())
}

// LastUpdateTime reports the timestamp of the most recent AddSoundings
// call that resulted in at least one used sounding.
func (m *MapSheet) LastUpdateTime() time.Time { return m.lastUpdateTime }
