// Package params holds the CUBE algorithm's tuning block (C5): IHO survey
// order error budgets, the distance-variance model, median pre-filter
// sizing, West & Harrison monitor thresholds, and blunder/capture gates.
// A Parameters value is constructed once and shared read-only by every
// Grid and Node in a MapSheet — it is never mutated after construction,
// per the no-hidden-global-state design note.
package params

import (
	"fmt"
	"math"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
)

// IHOOrder names a recognized IHO S-44 survey order.
type IHOOrder string

const (
	IHOExclusive IHOOrder = "exclusive"
	IHOSpecial   IHOOrder = "special"
	IHOOrder1A   IHOOrder = "order1a"
	IHOOrder1B   IHOOrder = "order1b"
	IHOOrder2    IHOOrder = "order2"
)

// ihoBudget is the unsquared (fixed s.d. in meters, percent s.d.) pair for
// one IHO order, per spec.md §6's bit-exact table.
type ihoBudget struct {
	fixedSD   float64
	percentSD float64
}

var ihoTable = map[IHOOrder]ihoBudget{
	IHOExclusive: {fixedSD: 0.15, percentSD: 0.0075},
	IHOSpecial:   {fixedSD: 0.25, percentSD: 0.0075},
	IHOOrder1A:   {fixedSD: 0.50, percentSD: 0.013},
	IHOOrder1B:   {fixedSD: 0.50, percentSD: 0.013},
	IHOOrder2:    {fixedSD: 1.00, percentSD: 0.023},
}

// Extractor names the hypothesis-extraction rule a Parameters block
// nominally requests. Only ExtractorPrior (sample-count selection) is
// implemented by Node.ChooseHypothesis; the others are carried for
// forward compatibility with the original algorithm's extractor hints
// (see DESIGN.md Open Question 4) and currently affect nothing.
type Extractor int

const (
	ExtractorPrior Extractor = iota
	ExtractorLikelihood
	ExtractorPosterior
	ExtractorPredictedSurface
)

const (
	defaultDistanceExponent        = 2.0
	defaultMedianLength            = 11
	defaultQuotientLimit           = 30.0
	defaultDiscount                = 1.0
	defaultEstimateOffset          = 4.0
	defaultBayesFactorThreshold    = 0.135
	defaultRunlengthThreshold      = 5
	defaultCaptureDistanceScale    = 0.05
	defaultStddevToConfidenceScale = geometry.Conf95PC
	defaultNodataDepth             = float32(0)
	// defaultNodataVariance is 0, not the reference's nodata_variance=1e6
	// (parameters.h): that value flags cells as unreliable when read back
	// from a prior surface this package never populates, so it stays inert
	// either way; 0 keeps an unset NodataVariance from masquerading as a
	// huge-but-finite uncertainty if a caller reads the field directly.
	defaultNodataVariance        = float32(0)
	defaultMinContextSearchRange = 5.0
	defaultMaxContextSearchRange = 10.0
)

// Parameters is the CUBE algorithm's full tuning block (C5).
type Parameters struct {
	IHOOrder IHOOrder
	// IHOFixed and IHOPercent are the squares of the tabulated s.d.
	// values, per spec.md §6.
	IHOFixed   float64
	IHOPercent float64

	CellSizes        geometry.CellSizes
	DistanceExponent float64
	// DistanceScale is min(CellSizes.X, CellSizes.Y).
	DistanceScale float64
	// VarianceScale is DistanceScale^(-DistanceExponent).
	VarianceScale float64

	MedianLength  int
	QuotientLimit float64
	Discount      float64

	EstimateOffset       float64
	BayesFactorThreshold float64
	RunlengthThreshold   int

	// BlunderMinimum, BlunderPercent and BlunderScalar are left at zero by
	// New, rather than defaulted to the reference's blunder_minimum=10,
	// blunder_percent=0.25, blunder_scalar=3.0 (parameters.h): the gate
	// they drive only runs against a pre-existing prior surface, which
	// this package never populates, so a non-zero default would be inert.
	// Set them with WithBlunderGate if a prior-surface workflow needs them.
	BlunderMinimum float64
	BlunderPercent float64
	BlunderScalar  float64

	CaptureDistanceScale float64

	StddevToConfidenceIntervalScale float64

	NodataDepth    float32
	NodataVariance float32

	Extractor Extractor
	// MinimumContextSearchRange and MaximumContextSearchRange are inert
	// (see Extractor's doc comment); carried for completeness.
	MinimumContextSearchRange float64
	MaximumContextSearchRange float64
}

// New builds a Parameters block from the given IHO order and cell sizes,
// applying defaults to every other field, then any supplied Option
// overrides, then validates the result.
func New(order IHOOrder, cellSizes geometry.CellSizes, opts ...Option) (*Parameters, error) {
	budget, ok := ihoTable[order]
	if !ok {
		return nil, fmt.Errorf("params: unrecognized iho order %q", order)
	}

	distanceScale := math.Min(float64(cellSizes.X), float64(cellSizes.Y))

	p := &Parameters{
		IHOOrder:   order,
		IHOFixed:   budget.fixedSD * budget.fixedSD,
		IHOPercent: budget.percentSD * budget.percentSD,

		CellSizes:        cellSizes,
		DistanceExponent: defaultDistanceExponent,
		DistanceScale:    distanceScale,

		MedianLength:  defaultMedianLength,
		QuotientLimit: defaultQuotientLimit,
		Discount:      defaultDiscount,

		EstimateOffset:       defaultEstimateOffset,
		BayesFactorThreshold: defaultBayesFactorThreshold,
		RunlengthThreshold:   defaultRunlengthThreshold,

		CaptureDistanceScale: defaultCaptureDistanceScale,

		StddevToConfidenceIntervalScale: defaultStddevToConfidenceScale,

		NodataDepth:    defaultNodataDepth,
		NodataVariance: defaultNodataVariance,

		Extractor:                 ExtractorPrior,
		MinimumContextSearchRange: defaultMinContextSearchRange * distanceScale,
		MaximumContextSearchRange: defaultMaxContextSearchRange * distanceScale,
	}

	for _, opt := range opts {
		opt(p)
	}
	p.VarianceScale = math.Pow(p.DistanceScale, -p.DistanceExponent)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Option customizes a Parameters block at construction time.
type Option func(*Parameters)

func WithDistanceExponent(v float64) Option { return func(p *Parameters) { p.DistanceExponent = v } }
func WithMedianLength(v int) Option         { return func(p *Parameters) { p.MedianLength = v } }
func WithQuotientLimit(v float64) Option    { return func(p *Parameters) { p.QuotientLimit = v } }
func WithDiscount(v float64) Option         { return func(p *Parameters) { p.Discount = v } }
func WithEstimateOffset(v float64) Option   { return func(p *Parameters) { p.EstimateOffset = v } }
func WithBayesFactorThreshold(v float64) Option {
	return func(p *Parameters) { p.BayesFactorThreshold = v }
}
func WithRunlengthThreshold(v int) Option { return func(p *Parameters) { p.RunlengthThreshold = v } }
func WithBlunderGate(minimum, percent, scalar float64) Option {
	return func(p *Parameters) {
		p.BlunderMinimum = minimum
		p.BlunderPercent = percent
		p.BlunderScalar = scalar
	}
}
func WithCaptureDistanceScale(v float64) Option {
	return func(p *Parameters) { p.CaptureDistanceScale = v }
}
func WithConfidenceIntervalScale(v float64) Option {
	return func(p *Parameters) { p.StddevToConfidenceIntervalScale = v }
}
func WithNodata(depth, variance float32) Option {
	return func(p *Parameters) {
		p.NodataDepth = depth
		p.NodataVariance = variance
	}
}
func WithExtractor(e Extractor) Option { return func(p *Parameters) { p.Extractor = e } }

// Validate reports a configuration error for any field outside its
// documented legal range. Called automatically by New.
func (p *Parameters) Validate() error {
	if p.CellSizes.X <= 0 || p.CellSizes.Y <= 0 {
		return fmt.Errorf("params: cell sizes must be positive, got %+v", p.CellSizes)
	}
	if p.MedianLength <= 0 || p.MedianLength%2 == 0 {
		return fmt.Errorf("params: median_length must be a positive odd integer, got %d", p.MedianLength)
	}
	if p.Discount <= 0 || p.Discount > 1 {
		return fmt.Errorf("params: discount must be in (0, 1], got %f", p.Discount)
	}
	if p.DistanceExponent <= 0 {
		return fmt.Errorf("params: distance_exponent must be positive, got %f", p.DistanceExponent)
	}
	if p.QuotientLimit <= 0 {
		return fmt.Errorf("params: quotient_limit must be positive, got %f", p.QuotientLimit)
	}
	if p.RunlengthThreshold <= 0 {
		return fmt.Errorf("params: runlength_threshold must be positive, got %d", p.RunlengthThreshold)
	}
	return nil
}
