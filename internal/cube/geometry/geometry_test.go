package geometry

import (
	"math"
	"testing"
)

func TestMapPositionEqual(t *testing.T) {
	a := MapPosition{X: 1, Y: 2}
	b := MapPosition{X: 1, Y: 2}
	if !a.Equal(b) {
		t.Fatalf("expected %v to equal %v", a, b)
	}
	nan := MapPosition{X: math.NaN(), Y: 2}
	if nan.Equal(a) {
		t.Fatalf("NaN position should never equal a valid one")
	}
}

func TestMapPositionAddSub(t *testing.T) {
	p := MapPosition{X: 1, Y: 1}
	o := MapOffset{X: 2, Y: 3}
	got := p.Add(o)
	want := MapPosition{X: 3, Y: 4}
	if got != want {
		t.Fatalf("Add = %v, want %v", got, want)
	}
	if got.Sub(p) != o {
		t.Fatalf("Sub did not invert Add")
	}
}

func TestFloorCeilDivideIndex(t *testing.T) {
	tile := MapOffset{X: 50, Y: 50}
	cases := []struct {
		p         MapPosition
		wantFloor GridIndex
		wantCeil  GridIndex
	}{
		{MapPosition{X: 0, Y: 0}, GridIndex{0, 0}, GridIndex{0, 0}},
		{MapPosition{X: 49, Y: 49}, GridIndex{0, 0}, GridIndex{1, 1}},
		{MapPosition{X: 55, Y: -5}, GridIndex{1, -1}, GridIndex{2, 0}},
		{MapPosition{X: -1, Y: -1}, GridIndex{-1, -1}, GridIndex{0, 0}},
	}
	for _, c := range cases {
		if got := FloorDivideIndex(c.p, tile); got != c.wantFloor {
			t.Errorf("FloorDivideIndex(%v) = %v, want %v", c.p, got, c.wantFloor)
		}
		if got := CeilDivideIndex(c.p, tile); got != c.wantCeil {
			t.Errorf("CeilDivideIndex(%v) = %v, want %v", c.p, got, c.wantCeil)
		}
	}
}

func TestOrigin(t *testing.T) {
	sizes := CellSizes{X: 1, Y: 1}
	counts := CellCounts{X: 50, Y: 50}
	got := Origin(GridIndex{X: 1, Y: 0}, sizes, counts)
	want := MapPosition{X: 50, Y: 0}
	if got != want {
		t.Fatalf("Origin = %v, want %v", got, want)
	}
}

func TestMapBoundsExpand(t *testing.T) {
	var b MapBounds
	if b.Valid() {
		t.Fatalf("zero-value bounds should be invalid")
	}
	b = b.Expand(MapPosition{X: 1, Y: 1})
	b = b.Expand(MapPosition{X: -1, Y: 5})
	if !b.Valid() {
		t.Fatalf("expanded bounds should be valid")
	}
	if b.Min != (MapPosition{X: -1, Y: 1}) || b.Max != (MapPosition{X: 1, Y: 5}) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestMapBoundsUnion(t *testing.T) {
	a := NewMapBounds(MapPosition{X: 0, Y: 0}).Expand(MapPosition{X: 1, Y: 1})
	b := NewMapBounds(MapPosition{X: 5, Y: 5}).Expand(MapPosition{X: 6, Y: 6})
	u := a.Union(b)
	if u.Min != (MapPosition{X: 0, Y: 0}) || u.Max != (MapPosition{X: 6, Y: 6}) {
		t.Fatalf("unexpected union: %+v", u)
	}
}
