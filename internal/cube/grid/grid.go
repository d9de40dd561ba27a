// Package grid implements C3: a fixed-size rectangular array of Nodes
// sharing a projected origin and cell spacing. Grid dispatches soundings
// into the Nodes they can plausibly influence and aggregates read-back.
package grid

import (
	"bytes"
	"encoding/gob"
	"math"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/node"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

// Sounding is one input observation: a horizontal position, a depth
// (positive downward by convention; sign is not enforced), and per-
// sounding vertical/horizontal error variances (spec.md §6).
type Sounding struct {
	X, Y                           float64
	Depth                          float64
	VerticalError, HorizontalError float64
}

// DepthAndUncertainty is one readback pair. A NaN depth denotes "no data".
type DepthAndUncertainty struct {
	Depth, Uncertainty float64
}

// Grid is a fixed-size tile of Nodes (C3).
type Grid struct {
	Counts geometry.CellCounts
	Sizes  geometry.CellSizes
	Origin geometry.MapPosition

	// nodes is row-major, length Counts.X * Counts.Y; entries are
	// created lazily on first use.
	nodes []*node.Node

	params *params.Parameters
}

// New returns an empty Grid tile with the given geometry, sharing p
// (never mutated after MapSheet construction — spec.md §5).
func New(counts geometry.CellCounts, sizes geometry.CellSizes, origin geometry.MapPosition, p *params.Parameters) *Grid {
	return &Grid{
		Counts: counts,
		Sizes:  sizes,
		Origin: origin,
		nodes:  make([]*node.Node, counts.X*counts.Y),
		params: p,
	}
}

// Bounds returns the world-space rectangle covered by this tile.
func (g *Grid) Bounds() geometry.MapBounds {
	max := g.Origin.Add(geometry.MapOffset{
		X: float64(g.Sizes.X) * float64(g.Counts.X),
		Y: float64(g.Sizes.Y) * float64(g.Counts.Y),
	})
	return geometry.NewMapBounds(g.Origin).Expand(max)
}

// InsertBatch folds Insert over soundings, returning true if any
// individual insert reported true (spec.md §4.3).
func (g *Grid) InsertBatch(soundings []Sounding) bool {
	used := false
	for _, s := range soundings {
		if g.Insert(s) {
			used = true
		}
	}
	return used
}

// Insert computes the sounding's influence radius, the integer bounding
// box of nodes it could affect, and dispatches to every node inside that
// radius (spec.md §4.3). Returns whether the sounding was plausibly used.
func (g *Grid) Insert(s Sounding) bool {
	maxVarianceAllowed := g.params.IHOFixed + g.params.IHOPercent*s.Depth*s.Depth/(geometry.Conf95PC*geometry.Conf95PC)
	ratio := maxVarianceAllowed / s.VerticalError
	if ratio <= 2.0 {
		ratio = 2.0
	}

	maxRadius := geometry.Conf99PC * math.Sqrt(s.HorizontalError)

	radius := g.params.DistanceScale*math.Pow(ratio-1.0, 1.0/g.params.DistanceExponent) - maxRadius
	if radius < 0.0 {
		radius = g.params.DistanceScale
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	if radius < g.params.DistanceScale {
		radius = g.params.DistanceScale
	}

	sizeX, sizeY := float64(g.Sizes.X), float64(g.Sizes.Y)
	minX := int32((s.X - radius - g.Origin.X) / sizeX)
	maxX := int32((s.X + radius - g.Origin.X) / sizeX)
	minY := int32((s.Y - radius - g.Origin.Y) / sizeY)
	maxY := int32((s.Y + radius - g.Origin.Y) / sizeY)

	if maxX < 0 || minX >= int32(g.Counts.X) || maxY < 0 || minY >= int32(g.Counts.Y) {
		return false
	}

	if minX < 0 {
		minX = 0
	}
	if maxX > int32(g.Counts.X)-1 {
		maxX = int32(g.Counts.X) - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY > int32(g.Counts.Y)-1 {
		maxY = int32(g.Counts.Y) - 1
	}

	radiusSquared := radius * radius

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			nodeX := g.Origin.X + float64(x)*sizeX
			nodeY := g.Origin.Y + float64(y)*sizeY
			dx := nodeX - s.X
			dy := nodeY - s.Y
			distanceSquared := dx*dx + dy*dy
			if distanceSquared < radiusSquared {
				idx := int(y)*int(g.Counts.X) + int(x)
				if g.nodes[idx] == nil {
					g.nodes[idx] = node.New()
				}
				g.nodes[idx].Insert(distanceSquared, s.Depth, s.VerticalError, s.HorizontalError, g.params)
			}
		}
	}
	return true
}

// Values returns a row-major sequence of (depth, uncertainty), length
// Counts.X * Counts.Y. Destructive: flushes each node's queue, so a
// caller wanting a stable snapshot must not re-insert and expect
// identical answers (spec.md §4.3).
func (g *Grid) Values() []DepthAndUncertainty {
	out := make([]DepthAndUncertainty, len(g.nodes))
	for i, n := range g.nodes {
		if n == nil {
			out[i] = DepthAndUncertainty{Depth: math.NaN(), Uncertainty: math.NaN()}
			continue
		}
		n.QueueFlush(g.params)
		depth, unc := n.ExtractDepthAndUncertainty(g.params)
		out[i] = DepthAndUncertainty{Depth: depth, Uncertainty: unc}
	}
	return out
}

// NodeAt returns the node at row-major cell (x, y), or nil if it has
// never been touched.
func (g *Grid) NodeAt(x, y int) *node.Node {
	return g.nodes[y*int(g.Counts.X)+x]
}

// Attach rebinds the shared Parameters reference after a Grid has been
// restored from a serialized blob (params is never serialized, since it
// is owned and shared by the enclosing MapSheet or Cache).
func (g *Grid) Attach(p *params.Parameters) {
	g.params = p
}

// gridWire is the on-wire shape of a Grid for gob encoding: everything
// except the shared Parameters reference, which callers re-Attach after
// decoding.
type gridWire struct {
	Counts geometry.CellCounts
	Sizes  geometry.CellSizes
	Origin geometry.MapPosition
	// Nodes holds only the touched nodes, keyed by row-major index, since
	// gob cannot encode the nil entries of the in-memory slice.
	Nodes map[int]*node.Node
}

// GobEncode implements gob.GobEncoder.
func (g *Grid) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := gridWire{Counts: g.Counts, Sizes: g.Sizes, Origin: g.Origin, Nodes: make(map[int]*node.Node)}
	for i, n := range g.nodes {
		if n != nil {
			w.Nodes[i] = n
		}
	}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. The caller must call Attach
// afterward to rebind the shared Parameters.
func (g *Grid) GobDecode(data []byte) error {
	var w gridWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	g.Counts, g.Sizes, g.Origin = w.Counts, w.Sizes, w.Origin
	g.nodes = make([]*node.Node, w.Counts.X*w.Counts.Y)
	for i, n := range w.Nodes {
		g.nodes[i] = n
	}
	return nil
}
