package cubeviz

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	require.NoError(t, err)
	g := grid.New(geometry.CellCounts{X: 8, Y: 8}, geometry.CellSizes{X: 1, Y: 1}, geometry.MapPosition{X: 0, Y: 0}, p)

	for i := 0; i < 8; i++ {
		g.Insert(grid.Sounding{
			X: float64(i), Y: float64(i),
			Depth:         10 + float64(i)*0.1,
			VerticalError: 0.05, HorizontalError: 0.5,
		})
	}
	return g
}

func TestRenderPNGWritesNonEmptyFile(t *testing.T) {
	g := testGrid(t)
	path := filepath.Join(t.TempDir(), "depth.png")

	require.NoError(t, RenderPNG(g, FieldDepth, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size(), "expected a non-empty PNG file")
}

func TestRenderPNGUncertaintyField(t *testing.T) {
	g := testGrid(t)
	path := filepath.Join(t.TempDir(), "uncertainty.png")

	require.NoError(t, RenderPNG(g, FieldUncertainty, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRenderPNGOnEmptyGridDoesNotError(t *testing.T) {
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	require.NoError(t, err)
	g := grid.New(geometry.CellCounts{X: 4, Y: 4}, geometry.CellSizes{X: 1, Y: 1}, geometry.MapPosition{X: 0, Y: 0}, p)

	path := filepath.Join(t.TempDir(), "empty.png")
	assert.NoError(t, RenderPNG(g, FieldDepth, path))
}

func TestRenderHTMLProducesMarkup(t *testing.T) {
	g := testGrid(t)
	var buf bytes.Buffer

	require.NoError(t, RenderHTML(g, FieldDepth, &buf, 0))
	assert.NotZero(t, buf.Len())
	assert.Contains(t, buf.String(), "<html")
}

func TestRenderHTMLDownsamplesLargeGrids(t *testing.T) {
	p, err := params.New(params.IHOOrder1A, geometry.CellSizes{X: 1, Y: 1})
	require.NoError(t, err)
	g := grid.New(geometry.CellCounts{X: 64, Y: 64}, geometry.CellSizes{X: 1, Y: 1}, geometry.MapPosition{X: 0, Y: 0}, p)
	for i := 0; i < 64; i++ {
		g.Insert(grid.Sounding{X: float64(i), Y: float64(i), Depth: 5, VerticalError: 0.05, HorizontalError: 0.5})
	}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(g, FieldDepth, &buf, 100))
	assert.NotZero(t, buf.Len(), "expected non-empty HTML output even when downsampled")
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "depth", FieldDepth.String())
	assert.Equal(t, "uncertainty", FieldUncertainty.String())
}
