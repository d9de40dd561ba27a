package main

import (
	"testing"

	"github.com/seabed-data/cube.survey/internal/config"
	"github.com/seabed-data/cube.survey/internal/cube/hypercube"
)

func TestFlagDefaults(t *testing.T) {
	if inputPath == nil {
		t.Fatal("inputPath flag not registered")
	}
	if *inputPath != "" {
		t.Errorf("inputPath default = %q, want empty", *inputPath)
	}

	if configFile == nil {
		t.Fatal("configFile flag not registered")
	}
	if *configFile != config.DefaultConfigPath {
		t.Errorf("configFile default = %q, want %q", *configFile, config.DefaultConfigPath)
	}

	if tileNodesX == nil {
		t.Fatal("tileNodesX flag not registered")
	}
	if *tileNodesX != 0 {
		t.Errorf("tileNodesX default = %d, want 0 (auto-size)", *tileNodesX)
	}

	if tileNodesY == nil {
		t.Fatal("tileNodesY flag not registered")
	}
	if *tileNodesY != 0 {
		t.Errorf("tileNodesY default = %d, want 0 (auto-size)", *tileNodesY)
	}

	if maxTileBytes == nil {
		t.Fatal("maxTileBytes flag not registered")
	}
	if *maxTileBytes != 0 {
		t.Errorf("maxTileBytes default = %d, want 0 (use tuning config)", *maxTileBytes)
	}

	if hypothesisHint == nil {
		t.Fatal("hypothesisHint flag not registered")
	}
	if *hypothesisHint != hypercube.DefaultHypothesisHint {
		t.Errorf("hypothesisHint default = %v, want %v", *hypothesisHint, hypercube.DefaultHypothesisHint)
	}

	if probUse == nil {
		t.Fatal("probUse flag not registered")
	}
	if *probUse != hypercube.DefaultProbUse {
		t.Errorf("probUse default = %v, want %v", *probUse, hypercube.DefaultProbUse)
	}

	if outputPath == nil {
		t.Fatal("outputPath flag not registered")
	}
	if *outputPath != "" {
		t.Errorf("outputPath default = %q, want empty", *outputPath)
	}

	if pngDir == nil {
		t.Fatal("pngDir flag not registered")
	}
	if *pngDir != "" {
		t.Errorf("pngDir default = %q, want empty", *pngDir)
	}

	if htmlDir == nil {
		t.Fatal("htmlDir flag not registered")
	}
	if *htmlDir != "" {
		t.Errorf("htmlDir default = %q, want empty", *htmlDir)
	}

	if cacheDir == nil {
		t.Fatal("cacheDir flag not registered")
	}
	if *cacheDir != "" {
		t.Errorf("cacheDir default = %q, want empty", *cacheDir)
	}

	if versionFlag == nil {
		t.Fatal("versionFlag flag not registered")
	}
	if *versionFlag != false {
		t.Errorf("versionFlag default = %v, want false", *versionFlag)
	}
}
