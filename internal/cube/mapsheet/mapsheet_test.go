package mapsheet

import (
	"testing"
	"time"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

func testSheet(t *testing.T) *MapSheet {
	t.Helper()
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	return New(geometry.CellCounts{X: 4, Y: 4}, geometry.CellSizes{X: 1, Y: 1}, p)
}

func TestNewMapSheetHasNoGrids(t *testing.T) {
	m := testSheet(t)
	if len(m.Grids()) != 0 {
		t.Fatalf("expected no grids initially, got %d", len(m.Grids()))
	}
}

func TestGetOrCreateGridsInCreatesOneTile(t *testing.T) {
	m := testSheet(t)
	bounds := geometry.NewMapBounds(geometry.MapPosition{X: 1, Y: 1})
	grids := m.GetOrCreateGridsIn(bounds)
	if len(grids) != 1 {
		t.Fatalf("expected exactly one tile for a single-point bounds within it, got %d", len(grids))
	}
	if len(m.Grids()) != 1 {
		t.Fatalf("expected the tile to be retained, got %d", len(m.Grids()))
	}
}

func TestGetOrCreateGridsInSpansMultipleTiles(t *testing.T) {
	m := testSheet(t)
	// Tile world size is 4x4 (counts 4, sizes 1); a bounds box from (0,0)
	// to (5,5) spans the origin tile and its neighbors in both axes.
	bounds := geometry.NewMapBounds(geometry.MapPosition{X: 0, Y: 0}).Expand(geometry.MapPosition{X: 5, Y: 5})
	grids := m.GetOrCreateGridsIn(bounds)
	if len(grids) != 4 {
		t.Fatalf("expected 4 tiles spanned, got %d", len(grids))
	}
}

func TestGetOrCreateGridsInReusesExistingTile(t *testing.T) {
	m := testSheet(t)
	bounds := geometry.NewMapBounds(geometry.MapPosition{X: 1, Y: 1})
	first := m.GetOrCreateGridsIn(bounds)[0]
	second := m.GetOrCreateGridsIn(bounds)[0]
	if first != second {
		t.Fatal("expected the same Grid instance to be reused for the same tile index")
	}
}

func TestAddSoundingsAdvancesLastUpdateTimeOnlyWhenUsed(t *testing.T) {
	m := testSheet(t)
	t0 := time.Now()

	// An empty batch uses no sounding. A sounding far from the origin
	// would still count as used: AddSoundings creates the tile it falls in.
	m.AddSoundings(nil, t0)
	if !m.LastUpdateTime().IsZero() {
		t.Fatal("expected lastUpdateTime to stay zero when no sounding was actually used")
	}

	t1 := t0.Add(time.Second)
	m.AddSoundings([]grid.Sounding{
		{X: 1, Y: 1, Depth: 10.0, VerticalError: 0.25, HorizontalError: 0.25},
	}, t1)
	if !m.LastUpdateTime().Equal(t1) {
		t.Fatalf("lastUpdateTime = %v, want %v", m.LastUpdateTime(), t1)
	}
}

func TestAddSoundingsEmptyBatchIsNoOp(t *testing.T) {
	m := testSheet(t)
	m.AddSoundings(nil, time.Now())
	if len(m.Grids()) != 0 {
		t.Fatal("expected an empty batch to create no tiles")
	}
}

func TestGridIndexMatchesTileContainingPosition(t *testing.T) {
	m := testSheet(t)
	idx := m.GridIndex(geometry.MapPosition{X: 5, Y: -1})
	if idx.X != 1 || idx.Y != -1 {
		t.Fatalf("GridIndex = %+v, want {1,-1}", idx)
	}
}

func TestTotalCellCountsCoversSpannedTiles(t *testing.T) {
	m := testSheet(t)
	bounds := geometry.NewMapBounds(geometry.MapPosition{X: 0, Y: 0}).Expand(geometry.MapPosition{X: 5, Y: 5})
	m.GetOrCreateGridsIn(bounds)
	counts := m.TotalCellCounts()
	if counts.X != 8 || counts.Y != 8 {
		t.Fatalf("TotalCellCounts = %+v, want {8,8}", counts)
	}
}

func TestGridBoundsSpansCreatedTiles(t *testing.T) {
	m := testSheet(t)
	bounds := geometry.NewMapBounds(geometry.MapPosition{X: 0, Y: 0}).Expand(geometry.MapPosition{X: 5, Y: 5})
	m.GetOrCreateGridsIn(bounds)
	gb := m.GridBounds()
	if gb.Min.X != 0 || gb.Min.Y != 0 {
		t.Fatalf("GridBounds.Min = %+v, want {0,0}", gb.Min)
	}
	if gb.Max.X != 8 || gb.Max.Y != 8 {
		t.Fatalf("GridBounds.Max = %+v, want {8,8}", gb.Max)
	}
}
