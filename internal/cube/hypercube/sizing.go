package hypercube

import "math"

// Per-resident-object memory heuristics. node.Node and hypothesis.Hypothesis
// are not measured with unsafe.Sizeof here, since we never run the Go
// toolchain against this estimate; the reference's own
// cube_grid_estimate_size body was not present in the retrieved source, so
// these are documented, from-scratch estimates rather than a transcription.
const (
	// bytesPerHypothesis approximates one resident *hypothesis.Hypothesis:
	// its four float64 estimate/variance fields, Bayes factor and counter
	// fields, and Go's per-allocation pointer overhead.
	bytesPerHypothesis = 80
	// bytesPerOccupiedNode approximates a *node.Node once touched: its
	// Queue/Hypotheses slice headers, NominatedIndex, and predicted-depth
	// fields, excluding the Hypotheses it owns (counted separately).
	bytesPerOccupiedNode = 64
	// bytesPerEmptyNode is a nil *node.Node slot in Grid.nodes before a
	// Node is lazily created at that cell.
	bytesPerEmptyNode = 8
)

// DefaultHypothesisHint and DefaultProbUse mirror the reference's
// DEFAULT_HYPOTHESIS_HINT (mean hypotheses maintained per node) and
// DEFAULT_PROBUSE (expected fraction of nodes ever touched), used by
// mapsheet_cube_alloc_grid when the caller leaves either input at zero.
const (
	DefaultHypothesisHint = 1.25
	DefaultProbUse        = 0.8

	// DefaultMaxTileDimension mirrors DEFAULT_MAX_TILE_DIMENSION.
	DefaultMaxTileDimension = 511

	minTileSide = 33
)

// EstimateTileSide picks a square tile side length, in nodes, from a user
// memory budget, the expected number of hypotheses maintained per node, and
// the probability that a given node has been touched at all (spec.md §4.5).
// Grounded on mapsheet_cube_alloc_grid: it divides the budget by four so
// that four resident tiles (the cache's default capacity) fit in memory at
// once, then clamps by maxTileDimension and rounds up to the next odd side
// ("Ensure side is an odd number for CUBE"). maxTileDimension of zero uses
// DefaultMaxTileDimension; hypothesisHint or probUse of zero use their
// DefaultX constant.
func EstimateTileSide(maxTileBytes int64, hypothesisHint, probUse float64, maxTileDimension uint32) uint32 {
	if maxTileDimension == 0 {
		maxTileDimension = DefaultMaxTileDimension
	}
	if maxTileBytes <= 0 {
		return oddClamp(minTileSide, maxTileDimension)
	}
	if hypothesisHint <= 0 {
		hypothesisHint = DefaultHypothesisHint
	}
	if probUse <= 0 || probUse > 1 {
		probUse = DefaultProbUse
	}

	perNode := probUse*(bytesPerOccupiedNode+hypothesisHint*bytesPerHypothesis) + (1-probUse)*bytesPerEmptyNode

	const tilesResidentAtOnce = 4
	budgetPerTile := float64(maxTileBytes) / tilesResidentAtOnce
	nodeBudget := budgetPerTile / perNode

	return oddClamp(uint32(math.Sqrt(nodeBudget)), maxTileDimension)
}

// oddClamp clamps side to [minTileSide, maxTileDimension] and rounds up to
// the next odd value, since a CUBE tile needs a center node.
func oddClamp(side, maxTileDimension uint32) uint32 {
	if side < minTileSide {
		side = minTileSide
	}
	if side > maxTileDimension {
		side = maxTileDimension
	}
	if side%2 == 0 {
		if side+1 <= maxTileDimension {
			side++
		} else {
			side--
		}
	}
	return side
}
