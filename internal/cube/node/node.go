// Package node implements C2: a single grid point's estimator state — a
// median pre-filter queue, a set of competing Bayesian hypotheses, and the
// predicted-depth prior used for slope-aware gating.
package node

import (
	"math"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/hypothesis"
	"github.com/seabed-data/cube.survey/internal/cube/params"
	"gonum.org/v1/gonum/floats"
)

// noUpdateRequested marks predicted_depth as NaN: the node must silently
// ignore every insert (spec.md §4.2 gate 1).
var noUpdateRequested = math.NaN()

// noInformation is the "no information available" sentinel for
// predicted_depth: INVALID_DATA, i.e. the maximum finite f32, matching the
// reference's default-constructed Node.
const noInformation = geometry.InvalidData

// QueueEntry is one pending (depth, variance) pair in a Node's median
// pre-filter queue.
type QueueEntry struct {
	Depth    float64
	Variance float64
}

// Node is a grid point's estimator state (C2).
type Node struct {
	// Queue is kept sorted by Depth descending at all times; its length
	// never exceeds params.MedianLength.
	Queue []QueueEntry

	// Hypotheses are owned exclusively by this Node.
	Hypotheses []*hypothesis.Hypothesis

	// NominatedIndex is a by-value index into Hypotheses for a
	// user-forced readback choice, or -1 if none is nominated. Modeled
	// as an index rather than a pointer since it is an internal
	// reference within the Node's own owned sequence (spec.md §9).
	NominatedIndex int

	// PredictedDepth and PredictedDepthVariance are the pre-seeded
	// "prior surface" used for slope correction and blunder gating.
	PredictedDepth         float64
	PredictedDepthVariance float64
}

// New returns a Node with no prior information: predicted depth is the
// "no information" sentinel, matching the reference's default state.
func New() *Node {
	return &Node{
		NominatedIndex:         -1,
		PredictedDepth:         noInformation,
		PredictedDepthVariance: noInformation,
	}
}

// NewSilenced returns a Node that ignores every future insert (predicted
// depth is NaN, spec.md §4.2 gate 1).
func NewSilenced() *Node {
	n := New()
	n.PredictedDepth = noUpdateRequested
	return n
}

// Insert applies the silenced/blunder/capture-radius gates, then forwards
// a surviving sounding to the median pre-filter (spec.md §4.2).
// distanceSquared is the squared planar distance from the node's position
// to the sounding. Returns true unconditionally: a dropped sounding is a
// no-op, not a failure (spec.md §7).
func (n *Node) Insert(distanceSquared float64, depth, verticalError, horizontalError float64, p *params.Parameters) bool {
	if math.IsNaN(n.PredictedDepth) {
		return true
	}

	distance := math.Sqrt(distanceSquared)

	var targetDepth float64
	if n.PredictedDepth != noInformation {
		targetDepth = n.PredictedDepth

		blunderLimit := math.Min(
			targetDepth-p.BlunderMinimum,
			targetDepth-p.BlunderPercent*math.Abs(targetDepth),
		)
		blunderLimit = math.Min(blunderLimit, targetDepth-p.BlunderScalar*math.Sqrt(n.PredictedDepthVariance))
		if depth < blunderLimit {
			return true
		}
	} else {
		targetDepth = depth
	}

	if distance > math.Max(p.CaptureDistanceScale*math.Abs(targetDepth), 0.5) {
		return true
	}

	distance += geometry.Conf95PC * math.Sqrt(horizontalError)
	variance := verticalError * (1.0 + p.StddevToConfidenceIntervalScale*math.Pow(distance, p.DistanceExponent))

	n.NominatedIndex = -1

	return n.QueueEstimate(depth, variance, p)
}

// QueueEstimate maintains the median pre-filter queue: once full, the
// middle element is popped and fed to the Bayesian update path before the
// new sample is inserted in sorted order (spec.md §4.2).
func (n *Node) QueueEstimate(depth, variance float64, p *params.Parameters) bool {
	if len(n.Queue) >= p.MedianLength {
		mi := p.MedianLength / 2
		median := n.Queue[mi]
		n.Update(median.Depth, median.Variance, p)
		n.Queue = append(n.Queue[:mi], n.Queue[mi+1:]...)
	}

	i := 0
	for i < len(n.Queue) && n.Queue[i].Depth > depth {
		i++
	}
	n.Queue = append(n.Queue, QueueEntry{})
	copy(n.Queue[i+1:], n.Queue[i:])
	n.Queue[i] = QueueEntry{Depth: depth, Variance: variance}

	if len(n.Queue) >= p.MedianLength {
		front := n.Queue[0]
		back := n.Queue[len(n.Queue)-1]
		loWater := front.Depth - geometry.Conf99PC*math.Sqrt(front.Variance)
		hiWater := back.Depth + geometry.Conf99PC*math.Sqrt(back.Variance)
		if loWater >= hiWater {
			n.Truncate(p)
		}
	}

	return true
}

// Truncate implements Eeg's leave-one-out F-like quotient outlier test
// over the current queue contents (spec.md §4.2).
func (n *Node) Truncate(p *params.Parameters) {
	if len(n.Queue) < 3 {
		return
	}
	nf := float64(len(n.Queue) - 1)

	depths := make([]float64, len(n.Queue))
	squares := make([]float64, len(n.Queue))
	for i, q := range n.Queue {
		depths[i] = q.Depth
		squares[i] = q.Depth * q.Depth
	}
	sum := floats.Sum(depths)
	meanAdj := sum / (nf + 1)
	ssd := floats.Sum(squares) - sum*sum/(nf+1)
	ssdK := nf * ssd / (nf*nf + 1)

	kept := n.Queue[:0:0]
	for _, q := range n.Queue {
		diffSq := (q.Depth - meanAdj) * (q.Depth - meanAdj)
		quotient := diffSq / (ssdK - diffSq/(nf-1))
		// Only a quotient above the limit rejects; an all-identical queue
		// gives 0/0 = NaN, which keeps the point.
		if !(quotient > p.QuotientLimit) {
			kept = append(kept, q)
		}
	}
	n.Queue = kept
}

// Update dispatches a pre-filtered sample to the best-matching hypothesis,
// spawning a new hypothesis on intervention or when none yet exists
// (spec.md §4.2).
func (n *Node) Update(z, v float64, p *params.Parameters) {
	best := n.bestHypothesis(z, v)
	if best == nil {
		n.Hypotheses = append(n.Hypotheses, hypothesis.New(z, v))
		return
	}
	if best.Update(z, v, p) == hypothesis.InterventionRequired {
		best.ResetMonitor()
		n.Hypotheses = append(n.Hypotheses, hypothesis.New(z, v))
	}
}

// bestHypothesis returns the hypothesis minimizing the normalized error
// against (z, v), breaking ties in favor of the last entry seen (spec.md
// §4.2 step 1; DESIGN.md Open Question 5).
func (n *Node) bestHypothesis(z, v float64) *hypothesis.Hypothesis {
	var best *hypothesis.Hypothesis
	minError := math.MaxFloat64
	for _, h := range n.Hypotheses {
		forecastVar := h.PredictedVariance + v
		errVal := math.Abs(z-h.PredictedEstimate) / math.Sqrt(forecastVar)
		if errVal <= minError {
			minError = errVal
			best = h
		}
	}
	return best
}

// ChooseHypothesis selects the hypothesis with the largest sample count
// (the pseudo-MAP rule), breaking ties arbitrarily in favor of the first
// entry found (spec.md §4.2; DESIGN.md Open Question 5).
func (n *Node) ChooseHypothesis() *hypothesis.Hypothesis {
	var best *hypothesis.Hypothesis
	var maxSamples uint32
	for _, h := range n.Hypotheses {
		if h.NumberOfSamples > maxSamples {
			best = h
			maxSamples = h.NumberOfSamples
		}
	}
	return best
}

// ExtractDepthAndUncertainty reports the current best depth estimate and
// its confidence-interval uncertainty, or (NaN, NaN) if nothing is known
// yet (spec.md §4.2).
func (n *Node) ExtractDepthAndUncertainty(p *params.Parameters) (depth, uncertainty float64) {
	if n.NominatedIndex >= 0 && n.NominatedIndex < len(n.Hypotheses) {
		h := n.Hypotheses[n.NominatedIndex]
		return h.CurrentEstimate, p.StddevToConfidenceIntervalScale * math.Sqrt(h.CurrentVariance)
	}

	h := n.ChooseHypothesis()
	if h != nil && h.NumberOfSamples > 0 {
		return h.CurrentEstimate, p.StddevToConfidenceIntervalScale * math.Sqrt(h.CurrentVariance)
	}
	return math.NaN(), math.NaN()
}

// QueueFlush truncates outliers from the queue, then repeatedly feeds the
// current median into the Bayesian update path until the queue is empty
// (spec.md §4.2). Destructive: a second call on an empty queue is a no-op,
// satisfying the idempotence law in spec.md §8.
func (n *Node) QueueFlush(p *params.Parameters) {
	if len(n.Queue) == 0 {
		return
	}
	n.Truncate(p)
	for len(n.Queue) > 0 {
		mi := len(n.Queue) / 2
		median := n.Queue[mi]
		n.Update(median.Depth, median.Variance, p)
		n.Queue = append(n.Queue[:mi], n.Queue[mi+1:]...)
	}
}

// Nominate forces readback to report the hypothesis at idx, or clears the
// nomination if idx is out of range.
func (n *Node) Nominate(idx int) {
	if idx < 0 || idx >= len(n.Hypotheses) {
		n.NominatedIndex = -1
		return
	}
	n.NominatedIndex = idx
}
