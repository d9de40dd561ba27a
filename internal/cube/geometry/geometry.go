// Package geometry defines the planar coordinate types shared by the
// estimation core: absolute positions, offsets between them, per-tile
// cell spacing and counts, integer node/tile indices, and axis-aligned
// bounds. Each is a distinct type with its own arithmetic — positions
// accept offsets, offsets form a vector space, sizes scale by counts into
// offsets, and indices are plain integer coordinates. They are kept
// separate rather than unified behind a single generic type.
package geometry

import "math"

// Confidence-interval scale factors used throughout the estimation core.
const (
	Conf95PC = 1.96
	Conf99PC = 2.95
)

// InvalidData is the sentinel used for "no data" in f32 fields that cannot
// use NaN (matching the reference implementation's INVALID_DATA constant).
const InvalidData = math.MaxFloat32

// MapPosition is an absolute projected position in meters. NaN components
// denote an invalid position.
type MapPosition struct {
	X, Y float64
}

// IsValid reports whether both components are finite.
func (p MapPosition) IsValid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Equal reports whether p and q are both valid and componentwise equal.
func (p MapPosition) Equal(q MapPosition) bool {
	return p.IsValid() && q.IsValid() && p.X == q.X && p.Y == q.Y
}

// Less reports whether p is strictly less than q in both components.
func (p MapPosition) Less(q MapPosition) bool {
	return p.X < q.X && p.Y < q.Y
}

// Add returns the position offset by o.
func (p MapPosition) Add(o MapOffset) MapPosition {
	return MapPosition{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns the offset from q to p (p - q).
func (p MapPosition) Sub(q MapPosition) MapOffset {
	return MapOffset{X: p.X - q.X, Y: p.Y - q.Y}
}

// MapOffset is a vector difference between two MapPositions.
type MapOffset struct {
	X, Y float64
}

// Scale returns o scaled by s.
func (o MapOffset) Scale(s float64) MapOffset {
	return MapOffset{X: o.X * s, Y: o.Y * s}
}

// CellSizes is the node spacing in meters; components are positive.
type CellSizes struct {
	X, Y float32
}

// CellCounts is a Grid's dimensions, in nodes.
type CellCounts struct {
	X, Y uint32
}

// CellIndex is a node coordinate inside a single Grid.
type CellIndex struct {
	X, Y int32
}

// GridIndex is a tile coordinate inside a MapSheet.
type GridIndex struct {
	X, Y int32
}

// TileWorldSize returns the size, in meters, of one GridIndex step:
// sizes * counts, componentwise.
func TileWorldSize(sizes CellSizes, counts CellCounts) MapOffset {
	return MapOffset{
		X: float64(sizes.X) * float64(counts.X),
		Y: float64(sizes.Y) * float64(counts.Y),
	}
}

// Origin returns the world-space origin of the tile at index i, given the
// shared tile world size.
func Origin(i GridIndex, sizes CellSizes, counts CellCounts) MapPosition {
	tile := TileWorldSize(sizes, counts)
	return MapPosition{X: float64(i.X) * tile.X, Y: float64(i.Y) * tile.Y}
}

// FloorDivideIndex floor-divides a position by a tile world size, yielding
// the GridIndex whose tile contains p (for p exactly on a boundary, the
// tile to the positive side).
func FloorDivideIndex(p MapPosition, tile MapOffset) GridIndex {
	return GridIndex{
		X: int32(math.Floor(p.X / tile.X)),
		Y: int32(math.Floor(p.Y / tile.Y)),
	}
}

// CeilDivideIndex ceil-divides a position by a tile world size.
func CeilDivideIndex(p MapPosition, tile MapOffset) GridIndex {
	return GridIndex{
		X: int32(math.Ceil(p.X / tile.X)),
		Y: int32(math.Ceil(p.Y / tile.Y)),
	}
}

// MapBounds is an axis-aligned rectangle. Zero value is not a valid empty
// bounds; use NewMapBounds or Expand to build one.
type MapBounds struct {
	Min, Max MapPosition
	valid    bool
}

// NewMapBounds returns bounds containing exactly the single point p.
func NewMapBounds(p MapPosition) MapBounds {
	return MapBounds{Min: p, Max: p, valid: true}
}

// Valid reports whether b contains at least one point.
func (b MapBounds) Valid() bool { return b.valid }

// Expand grows b monotonically to also contain p, returning the new bounds.
func (b MapBounds) Expand(p MapPosition) MapBounds {
	if !b.valid {
		return NewMapBounds(p)
	}
	return MapBounds{
		Min: MapPosition{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y)},
		Max: MapPosition{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y)},
		valid: true,
	}
}

// Union returns the smallest bounds containing both b and o.
func (b MapBounds) Union(o MapBounds) MapBounds {
	if !b.valid {
		return o
	}
	if !o.valid {
		return b
	}
	return MapBounds{
		Min: MapPosition{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y)},
		Max: MapPosition{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y)},
		valid: true,
	}
}
