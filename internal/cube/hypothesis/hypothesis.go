// Package hypothesis implements C1: a single Bayesian depth track with
// West & Harrison model monitoring and intervention detection.
package hypothesis

import (
	"math"

	"github.com/seabed-data/cube.survey/internal/cube/params"
)

// Status is the result of incorporating a new sample into a Hypothesis.
type Status int

const (
	// Accepted means the sample was incorporated into the posterior.
	Accepted Status = iota
	// InterventionRequired means the sample was rejected by monitoring;
	// the caller must open a new Hypothesis to consume it.
	InterventionRequired
)

// Hypothesis is one competing posterior over depth maintained at a Node.
// All arithmetic is carried out in float64 regardless of the float32
// storage of some ancillary fields, per spec.md §4.1.
type Hypothesis struct {
	CurrentEstimate  float64
	CurrentVariance  float64
	PredictedEstimate float64
	PredictedVariance float64

	CumulativeBayesFactor float64
	SequenceLength        uint16

	NumberOfSamples uint32

	// InputSampleVariance and MaximumOfInputAndPredictedVariance are
	// ancillary statistics tracked for diagnostic reporting; neither
	// feeds back into Update or Monitor.
	InputSampleVariance                 float32
	MaximumOfInputAndPredictedVariance float32

	HypothesisNumber uint16
}

// New creates a Hypothesis seeded at (mean, variance) with one sample
// already incorporated.
func New(mean, variance float64) *Hypothesis {
	return &Hypothesis{
		CurrentEstimate:   mean,
		CurrentVariance:   variance,
		PredictedEstimate: mean,
		PredictedVariance: variance,
		CumulativeBayesFactor: 1.0,
		NumberOfSamples:       1,
	}
}

// NewNull creates a placeholder Hypothesis with zero samples incorporated,
// treated as absent in readback.
func NewNull(mean, variance float64) *Hypothesis {
	h := New(mean, variance)
	h.NumberOfSamples = 0
	return h
}

// IsNull reports whether h has never incorporated a sample.
func (h *Hypothesis) IsNull() bool { return h.NumberOfSamples == 0 }

// ResetMonitor clears the cumulative Bayes factor and run length, called
// when a Node spawns a replacement Hypothesis after intervention so the
// predecessor's monitor state does not leak forward.
func (h *Hypothesis) ResetMonitor() {
	h.CumulativeBayesFactor = 1.0
	h.SequenceLength = 0
}

// Monitor implements West & Harrison's unidirectional-level-shift
// alternate with cumulative Bayes factor and run-length tracking
// (spec.md §4.1). The e>=0/e<0 branch split is arithmetically equivalent
// but preserved verbatim from the reference (DESIGN.md Open Question 3).
func (h *Hypothesis) Monitor(z, v float64, p *params.Parameters) bool {
	forecastVar := h.PredictedVariance + v
	e := math.Abs(z-h.PredictedEstimate) / math.Sqrt(forecastVar)

	hParam := p.EstimateOffset
	var bayesFactor float64
	if e >= 0 {
		bayesFactor = math.Exp(0.5 * (hParam*hParam - 2.0*hParam*e))
	} else {
		bayesFactor = math.Exp(0.5 * (hParam*hParam + 2.0*hParam*e))
	}

	if bayesFactor < p.BayesFactorThreshold {
		return false
	}

	if h.CumulativeBayesFactor < 1.0 {
		h.SequenceLength++
	} else {
		h.SequenceLength = 1
	}
	h.CumulativeBayesFactor = bayesFactor * math.Min(1.0, h.CumulativeBayesFactor)

	if h.CumulativeBayesFactor < p.BayesFactorThreshold || int(h.SequenceLength) > p.RunlengthThreshold {
		return false
	}
	return true
}

// Update incorporates a new observation (z, v) into the posterior,
// following West & Harrison's univariate dynamic linear model update
// (spec.md §4.1). Returns InterventionRequired without mutating state
// beyond Monitor's own bookkeeping if the sample fails monitoring; the
// caller must then open a new Hypothesis for z.
func (h *Hypothesis) Update(z, v float64, p *params.Parameters) Status {
	if !h.Monitor(z, v, p) {
		return InterventionRequired
	}

	n := float64(h.NumberOfSamples)
	h.InputSampleVariance = float32(
		(n-1)*float64(h.InputSampleVariance)/n +
			(z-h.CurrentEstimate)*(z-h.CurrentEstimate)/n,
	)

	systemVariance := h.CurrentVariance * (1.0 - p.Discount) / p.Discount

	gain := h.PredictedVariance / (v + h.PredictedVariance)
	innovation := z - h.PredictedEstimate
	h.PredictedEstimate += gain * innovation
	h.CurrentEstimate = h.PredictedEstimate
	h.CurrentVariance = v * h.PredictedVariance / (v + h.PredictedVariance)
	h.PredictedVariance = h.CurrentVariance + systemVariance

	h.NumberOfSamples++

	return Accepted
}
