package hypothesis

import (
	"math"
	"testing"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

func testParams(t *testing.T) *params.Parameters {
	t.Helper()
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	return p
}

func TestNewSetsInvariants(t *testing.T) {
	h := New(10.0, 0.25)
	if h.CurrentVariance <= 0 || h.PredictedVariance <= 0 {
		t.Fatalf("variances must be strictly positive: %+v", h)
	}
	if h.NumberOfSamples != 1 {
		t.Fatalf("NumberOfSamples = %d, want 1", h.NumberOfSamples)
	}
	if h.CumulativeBayesFactor != 1.0 {
		t.Fatalf("CumulativeBayesFactor = %f, want 1.0", h.CumulativeBayesFactor)
	}
}

func TestNewNullHasZeroSamples(t *testing.T) {
	h := NewNull(10.0, 0.25)
	if !h.IsNull() {
		t.Fatal("expected null hypothesis")
	}
	if h.NumberOfSamples != 0 {
		t.Fatalf("NumberOfSamples = %d, want 0", h.NumberOfSamples)
	}
}

func TestUpdateAcceptsConsistentSample(t *testing.T) {
	p := testParams(t)
	h := New(10.0, 0.25)
	status := h.Update(10.1, 0.25, p)
	if status != Accepted {
		t.Fatalf("expected Accepted, got %v", status)
	}
	if h.NumberOfSamples != 2 {
		t.Fatalf("NumberOfSamples = %d, want 2", h.NumberOfSamples)
	}
	if h.CurrentVariance <= 0 || h.PredictedVariance <= 0 {
		t.Fatalf("variances must remain positive: %+v", h)
	}
}

func TestUpdateRequestsInterventionOnLevelShift(t *testing.T) {
	p := testParams(t)
	h := New(10.0, 0.01)
	status := h.Update(50.0, 0.01, p)
	if status != InterventionRequired {
		t.Fatalf("expected InterventionRequired for a large level shift, got %v", status)
	}
	// intervention must not advance the sample count
	if h.NumberOfSamples != 1 {
		t.Fatalf("NumberOfSamples = %d, want unchanged 1", h.NumberOfSamples)
	}
}

func TestResetMonitorClearsState(t *testing.T) {
	h := New(10.0, 0.25)
	h.CumulativeBayesFactor = 0.2
	h.SequenceLength = 3
	h.ResetMonitor()
	if h.CumulativeBayesFactor != 1.0 || h.SequenceLength != 0 {
		t.Fatalf("ResetMonitor did not clear state: %+v", h)
	}
}

func TestRepeatedIdenticalUpdatesReduceVariance(t *testing.T) {
	p := testParams(t)
	h := New(10.0, 0.25)
	prevVariance := h.PredictedVariance
	for i := 0; i < 10; i++ {
		if status := h.Update(10.0, 0.25, p); status != Accepted {
			t.Fatalf("update %d: expected Accepted", i)
		}
		if h.CurrentVariance >= prevVariance && i > 0 {
			t.Fatalf("variance did not decrease monotonically at step %d", i)
		}
		prevVariance = h.CurrentVariance
	}
	if math.Abs(h.CurrentEstimate-10.0) > 1e-6 {
		t.Fatalf("CurrentEstimate = %f, want ~10.0", h.CurrentEstimate)
	}
}
