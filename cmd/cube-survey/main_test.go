package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/seabed-data/cube.survey/internal/config"
	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/mapsheet"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

func TestParseSoundingRow(t *testing.T) {
	got, err := parseSoundingRow([]string{"1.5", "2.5", "10.25", "0.1", "0.5"})
	if err != nil {
		t.Fatalf("parseSoundingRow: %v", err)
	}

	want := grid.Sounding{X: 1.5, Y: 2.5, Depth: 10.25, VerticalError: 0.1, HorizontalError: 0.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseSoundingRow() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSoundingRowRejectsNonNumeric(t *testing.T) {
	if _, err := parseSoundingRow([]string{"x", "2.5", "10.25", "0.1", "0.5"}); err == nil {
		t.Error("expected an error for a non-numeric field, got nil")
	}
}

func TestReadSoundingsCSVSkipsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundings.csv")
	data := "x,y,depth,vertical_error,horizontal_error\n1,1,10,0.1,0.5\n2,2,11,0.1,0.5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := readSoundingsCSV(path)
	if err != nil {
		t.Fatalf("readSoundingsCSV: %v", err)
	}

	want := []grid.Sounding{
		{X: 1, Y: 1, Depth: 10, VerticalError: 0.1, HorizontalError: 0.5},
		{X: 2, Y: 2, Depth: 11, VerticalError: 0.1, HorizontalError: 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("readSoundingsCSV() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSoundingsCSVWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soundings.csv")
	if err := os.WriteFile(path, []byte("3,3,12,0.1,0.5\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := readSoundingsCSV(path)
	if err != nil {
		t.Fatalf("readSoundingsCSV: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
}

func TestWriteJSONReadback(t *testing.T) {
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	if err != nil {
		t.Fatalf("params.New: %v", err)
	}
	sheet := mapsheet.New(geometry.CellCounts{X: 2, Y: 2}, geometry.CellSizes{X: 1, Y: 1}, p)
	sheet.AddSoundings([]grid.Sounding{{X: 0, Y: 0, Depth: 10, VerticalError: 0.1, HorizontalError: 0.5}}, time.Now())

	path := filepath.Join(t.TempDir(), "readback.json")
	if err := writeJSONReadback(sheet, path); err != nil {
		t.Fatalf("writeJSONReadback: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var tiles []tileReadback
	if err := json.Unmarshal(data, &tiles); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(tiles) != 1 {
		t.Fatalf("len(tiles) = %d, want 1", len(tiles))
	}
	if len(tiles[0].Values) != 4 {
		t.Errorf("len(tiles[0].Values) = %d, want 4", len(tiles[0].Values))
	}
}

func TestLoadTuningFallsBackToEmptyWhenFileMissing(t *testing.T) {
	cfg, err := loadTuning(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("loadTuning: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected a non-nil fallback config")
	}
}

func TestResolveTileCountsHonorsExplicitFlags(t *testing.T) {
	origX, origY := *tileNodesX, *tileNodesY
	*tileNodesX, *tileNodesY = 17, 31
	defer func() { *tileNodesX, *tileNodesY = origX, origY }()

	got := resolveTileCounts(config.EmptyTuningConfig())
	if got.X != 17 || got.Y != 31 {
		t.Errorf("resolveTileCounts() = %+v, want {17 31}", got)
	}
}

func TestResolveTileCountsAutoSizesWhenZero(t *testing.T) {
	origX, origY, origBudget := *tileNodesX, *tileNodesY, *maxTileBytes
	*tileNodesX, *tileNodesY, *maxTileBytes = 0, 0, 4<<20
	defer func() { *tileNodesX, *tileNodesY, *maxTileBytes = origX, origY, origBudget }()

	got := resolveTileCounts(config.EmptyTuningConfig())
	if got.X == 0 || got.Y == 0 {
		t.Fatalf("resolveTileCounts() = %+v, want non-zero auto-sized counts", got)
	}
	if got.X%2 == 0 || got.Y%2 == 0 {
		t.Errorf("resolveTileCounts() = %+v, want odd tile dimensions", got)
	}
}
