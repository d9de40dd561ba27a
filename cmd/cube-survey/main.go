// cube-survey is a reference CLI: it ingests a CSV of soundings into a
// MapSheet, then writes a JSON depth/uncertainty readback and optionally a
// PNG/HTML heatmap per populated tile.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/seabed-data/cube.survey/internal/config"
	"github.com/seabed-data/cube.survey/internal/cube/cubeviz"
	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/hypercube"
	"github.com/seabed-data/cube.survey/internal/cube/mapsheet"
	"github.com/seabed-data/cube.survey/internal/cube/params"
	"github.com/seabed-data/cube.survey/internal/fsutil"
	"github.com/seabed-data/cube.survey/internal/monitoring"
	"github.com/seabed-data/cube.survey/internal/timeutil"
	"github.com/seabed-data/cube.survey/internal/version"
)

var (
	inputPath      = flag.String("input", "", "path to a CSV of soundings (header: x,y,depth,vertical_error,horizontal_error)")
	configFile     = flag.String("config", config.DefaultConfigPath, "path to JSON tuning configuration file")
	tileNodesX     = flag.Uint("tile-nodes-x", 0, "Grid tile width, in nodes; 0 auto-sizes from -max-tile-bytes via EstimateTileSide")
	tileNodesY     = flag.Uint("tile-nodes-y", 0, "Grid tile height, in nodes; 0 auto-sizes from -max-tile-bytes via EstimateTileSide")
	maxTileBytes   = flag.Int64("max-tile-bytes", 0, "memory budget used to auto-size tile-nodes-x/y when they are left at 0; 0 uses the tuning config's max_tile_bytes")
	hypothesisHint = flag.Float64("hypothesis-hint", hypercube.DefaultHypothesisHint, "expected number of competing hypotheses per node, for tile auto-sizing")
	probUse        = flag.Float64("prob-use", hypercube.DefaultProbUse, "expected probability that a node is ever touched, for tile auto-sizing")
	outputPath     = flag.String("output", "", "path to write a JSON readback of every tile; empty skips")
	pngDir         = flag.String("png-dir", "", "directory to write per-tile depth/uncertainty PNG heatmaps; empty skips")
	htmlDir        = flag.String("html-dir", "", "directory to write per-tile depth/uncertainty HTML heatmaps; empty skips")
	cacheDir       = flag.String("cache-dir", "", "HyperCUBE disk-backed tile cache directory to persist the built tiles into; empty keeps everything in memory only")
	versionFlag    = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("cube-survey %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *inputPath == "" {
		log.Fatal("cube-survey: -input is required")
	}

	cfg, err := loadTuning(*configFile)
	if err != nil {
		log.Fatalf("cube-survey: load tuning: %v", err)
	}

	p, err := params.New(cfg.GetIHOOrder(), cfg.GetCellSizes(), cfg.BuildOptions()...)
	if err != nil {
		log.Fatalf("cube-survey: build parameters: %v", err)
	}

	soundings, err := readSoundingsCSV(*inputPath)
	if err != nil {
		log.Fatalf("cube-survey: read soundings: %v", err)
	}
	fmt.Printf("cube-survey: read %d soundings from %s\n", len(soundings), *inputPath)

	counts := resolveTileCounts(cfg)
	sheet := mapsheet.New(counts, cfg.GetCellSizes(), p)
	sheet.AddSoundings(soundings, time.Now())

	tiles := sheet.Grids()
	fmt.Printf("cube-survey: populated %d tile(s)\n", len(tiles))

	if *outputPath != "" {
		if err := writeJSONReadback(sheet, *outputPath); err != nil {
			log.Fatalf("cube-survey: write JSON readback: %v", err)
		}
		fmt.Printf("cube-survey: wrote JSON readback to %s\n", *outputPath)
	}

	if *pngDir != "" {
		if err := renderHeatmaps(tiles, *pngDir, cubeviz.RenderPNG, "png"); err != nil {
			log.Fatalf("cube-survey: render PNG heatmaps: %v", err)
		}
		fmt.Printf("cube-survey: wrote PNG heatmaps to %s\n", *pngDir)
	}

	if *htmlDir != "" {
		if err := renderHeatmaps(tiles, *htmlDir, renderHTMLToFile, "html"); err != nil {
			log.Fatalf("cube-survey: render HTML heatmaps: %v", err)
		}
		fmt.Printf("cube-survey: wrote HTML heatmaps to %s\n", *htmlDir)
	}

	if *cacheDir != "" {
		if err := persistToCache(sheet, cfg, p, counts); err != nil {
			log.Fatalf("cube-survey: persist to cache: %v", err)
		}
		fmt.Printf("cube-survey: persisted tiles to HyperCUBE cache at %s\n", *cacheDir)
	}

	monitoring.Logf("cube-survey: done, last update %s", sheet.LastUpdateTime())
}

// resolveTileCounts picks the Grid tile dimensions: an explicit
// -tile-nodes-x/-tile-nodes-y wins; a 0 on either axis is auto-sized by
// EstimateTileSide from -max-tile-bytes (falling back to the tuning
// config's max_tile_bytes) and the hypothesis-hint/prob-use flags.
func resolveTileCounts(cfg *config.TuningConfig) geometry.CellCounts {
	if *tileNodesX != 0 && *tileNodesY != 0 {
		return geometry.CellCounts{X: uint32(*tileNodesX), Y: uint32(*tileNodesY)}
	}

	budget := *maxTileBytes
	if budget <= 0 {
		budget = cfg.GetMaxTileBytes()
	}
	side := hypercube.EstimateTileSide(budget, *hypothesisHint, *probUse, 0)

	counts := geometry.CellCounts{X: side, Y: side}
	if *tileNodesX != 0 {
		counts.X = uint32(*tileNodesX)
	}
	if *tileNodesY != 0 {
		counts.Y = uint32(*tileNodesY)
	}
	return counts
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) || path == config.DefaultConfigPath {
		return config.EmptyTuningConfig(), nil
	}
	return nil, err
}

// readSoundingsCSV parses x,y,depth,vertical_error,horizontal_error rows,
// skipping a header row if the first field isn't numeric.
func readSoundingsCSV(path string) ([]grid.Sounding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5
	r.TrimLeadingSpace = true

	var out []grid.Sounding
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if _, err := strconv.ParseFloat(rec[0], 64); err != nil {
				continue // header row
			}
		}

		s, err := parseSoundingRow(rec)
		if err != nil {
			return nil, fmt.Errorf("parse row %v: %w", rec, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseSoundingRow(rec []string) (grid.Sounding, error) {
	vals := make([]float64, 5)
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return grid.Sounding{}, err
		}
		vals[i] = v
	}
	return grid.Sounding{
		X: vals[0], Y: vals[1],
		Depth:           vals[2],
		VerticalError:   vals[3],
		HorizontalError: vals[4],
	}, nil
}

// tileReadback is the JSON shape of one Grid tile's readback.
type tileReadback struct {
	TileX   int32                      `json:"tile_x"`
	TileY   int32                      `json:"tile_y"`
	OriginX float64                    `json:"origin_x"`
	OriginY float64                    `json:"origin_y"`
	CountsX uint32                     `json:"counts_x"`
	CountsY uint32                     `json:"counts_y"`
	Values  []grid.DepthAndUncertainty `json:"values"`
}

func writeJSONReadback(sheet *mapsheet.MapSheet, path string) error {
	var tiles []tileReadback
	for _, g := range sheet.Grids() {
		idx := sheet.GridIndex(g.Origin)
		tiles = append(tiles, tileReadback{
			TileX: idx.X, TileY: idx.Y,
			OriginX: g.Origin.X, OriginY: g.Origin.Y,
			CountsX: g.Counts.X, CountsY: g.Counts.Y,
			Values: g.Values(),
		})
	}

	data, err := json.MarshalIndent(tiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type heatmapFunc func(g *grid.Grid, field cubeviz.Field, path string) error

func renderHTMLToFile(g *grid.Grid, field cubeviz.Field, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return cubeviz.RenderHTML(g, field, f, 0)
}

func renderHeatmaps(tiles []*grid.Grid, dir string, render heatmapFunc, ext string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, g := range tiles {
		for _, field := range []cubeviz.Field{cubeviz.FieldDepth, cubeviz.FieldUncertainty} {
			name := fmt.Sprintf("tile_%03d_%s.%s", i, field, ext)
			if err := render(g, field, filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("tile %d (%s): %w", i, field, err)
			}
		}
	}
	return nil
}

func persistToCache(sheet *mapsheet.MapSheet, cfg *config.TuningConfig, p *params.Parameters, counts geometry.CellCounts) error {
	cache, err := hypercube.Open(*cacheDir, fsutil.OSFileSystem{}, timeutil.RealClock{}, counts, cfg.GetCellSizes(), p, cfg.GetCacheCapacity(), cfg.GetCacheExpiry())
	if err != nil {
		return err
	}
	defer cache.Close()

	for _, g := range sheet.Grids() {
		idx := sheet.GridIndex(g.Origin)
		if err := cache.Put(idx, g); err != nil {
			return fmt.Errorf("put tile (%d,%d): %w", idx.X, idx.Y, err)
		}
	}
	return cache.Flush()
}
