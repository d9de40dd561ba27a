// Package config loads the CUBE tuning block (params.Parameters overrides)
// and HyperCUBE cache settings from a JSON file, so a deployment can retune
// the estimator without a rebuild. Fields are pointers so a partial file
// only overrides what it mentions; Get* methods supply the same defaults
// params.New itself would pick.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/hypercube"
	"github.com/seabed-data/cube.survey/internal/cube/params"
)

// DefaultConfigPath is the canonical tuning defaults file, checked in
// alongside the code so `go run ./cmd/cube-survey` works from a checkout
// with no flags at all.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the on-disk shape of a tuning file. All fields are
// optional; an absent field falls back to params' or hypercube's own
// default.
type TuningConfig struct {
	IHOOrder  *string  `json:"iho_order,omitempty"`
	CellSizeX *float64 `json:"cell_size_x,omitempty"`
	CellSizeY *float64 `json:"cell_size_y,omitempty"`

	DistanceExponent     *float64 `json:"distance_exponent,omitempty"`
	MedianLength         *int     `json:"median_length,omitempty"`
	QuotientLimit        *float64 `json:"quotient_limit,omitempty"`
	Discount             *float64 `json:"discount,omitempty"`
	EstimateOffset       *float64 `json:"estimate_offset,omitempty"`
	BayesFactorThreshold *float64 `json:"bayes_factor_threshold,omitempty"`
	RunlengthThreshold   *int     `json:"runlength_threshold,omitempty"`

	BlunderMinimum *float64 `json:"blunder_minimum,omitempty"`
	BlunderPercent *float64 `json:"blunder_percent,omitempty"`
	BlunderScalar  *float64 `json:"blunder_scalar,omitempty"`

	CaptureDistanceScale    *float64 `json:"capture_distance_scale,omitempty"`
	ConfidenceIntervalScale *float64 `json:"confidence_interval_scale,omitempty"`

	// HyperCUBE tile cache settings (internal/cube/hypercube); only
	// consulted by callers that opt into disk-backed tiling.
	CacheCapacity      *int   `json:"cache_capacity,omitempty"`
	CacheExpirySeconds *int64 `json:"cache_expiry_seconds,omitempty"`
	MaxTileBytes       *int64 `json:"max_tile_bytes,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with every field nil, i.e. "use
// every default".
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig reads and validates a TuningConfig from a JSON file.
// The path must end in .json and the file must be under 1MB; fields it
// omits keep their params/hypercube defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config: tuning file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: stat tuning file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config: tuning file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read tuning file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse tuning JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid tuning file: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults, searching
// upward from the current directory for DefaultConfigPath. Intended for
// test setup; panics if the file cannot be found.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that any set field is within the range params.Validate
// would itself accept, so a bad tuning file fails fast rather than at
// params.New.
func (c *TuningConfig) Validate() error {
	if c.IHOOrder != nil {
		switch params.IHOOrder(*c.IHOOrder) {
		case params.IHOExclusive, params.IHOSpecial, params.IHOOrder1A, params.IHOOrder1B, params.IHOOrder2:
		default:
			return fmt.Errorf("iho_order must be one of exclusive, special, order1a, order1b, order2; got %q", *c.IHOOrder)
		}
	}
	if c.CellSizeX != nil && *c.CellSizeX <= 0 {
		return fmt.Errorf("cell_size_x must be positive, got %f", *c.CellSizeX)
	}
	if c.CellSizeY != nil && *c.CellSizeY <= 0 {
		return fmt.Errorf("cell_size_y must be positive, got %f", *c.CellSizeY)
	}
	if c.MedianLength != nil && (*c.MedianLength <= 0 || *c.MedianLength%2 == 0) {
		return fmt.Errorf("median_length must be a positive odd integer, got %d", *c.MedianLength)
	}
	if c.Discount != nil && (*c.Discount <= 0 || *c.Discount > 1) {
		return fmt.Errorf("discount must be in (0, 1], got %f", *c.Discount)
	}
	if c.DistanceExponent != nil && *c.DistanceExponent <= 0 {
		return fmt.Errorf("distance_exponent must be positive, got %f", *c.DistanceExponent)
	}
	if c.QuotientLimit != nil && *c.QuotientLimit <= 0 {
		return fmt.Errorf("quotient_limit must be positive, got %f", *c.QuotientLimit)
	}
	if c.RunlengthThreshold != nil && *c.RunlengthThreshold <= 0 {
		return fmt.Errorf("runlength_threshold must be positive, got %d", *c.RunlengthThreshold)
	}
	if c.CacheCapacity != nil && *c.CacheCapacity <= 0 {
		return fmt.Errorf("cache_capacity must be positive, got %d", *c.CacheCapacity)
	}
	if c.CacheExpirySeconds != nil && *c.CacheExpirySeconds <= 0 {
		return fmt.Errorf("cache_expiry_seconds must be positive, got %d", *c.CacheExpirySeconds)
	}
	if c.MaxTileBytes != nil && *c.MaxTileBytes <= 0 {
		return fmt.Errorf("max_tile_bytes must be positive, got %d", *c.MaxTileBytes)
	}
	return nil
}

// GetIHOOrder returns the configured IHO order, defaulting to order1a (the
// most commonly surveyed order).
func (c *TuningConfig) GetIHOOrder() params.IHOOrder {
	if c.IHOOrder == nil {
		return params.IHOOrder1A
	}
	return params.IHOOrder(*c.IHOOrder)
}

// GetCellSizes returns the configured per-tile cell spacing, defaulting to
// a 1x1 meter grid.
func (c *TuningConfig) GetCellSizes() geometry.CellSizes {
	sizes := geometry.CellSizes{X: 1, Y: 1}
	if c.CellSizeX != nil {
		sizes.X = float32(*c.CellSizeX)
	}
	if c.CellSizeY != nil {
		sizes.Y = float32(*c.CellSizeY)
	}
	return sizes
}

// BuildOptions translates every set field into the matching params.Option,
// ready to pass straight to params.New alongside GetIHOOrder/GetCellSizes.
func (c *TuningConfig) BuildOptions() []params.Option {
	var opts []params.Option
	if c.DistanceExponent != nil {
		opts = append(opts, params.WithDistanceExponent(*c.DistanceExponent))
	}
	if c.MedianLength != nil {
		opts = append(opts, params.WithMedianLength(*c.MedianLength))
	}
	if c.QuotientLimit != nil {
		opts = append(opts, params.WithQuotientLimit(*c.QuotientLimit))
	}
	if c.Discount != nil {
		opts = append(opts, params.WithDiscount(*c.Discount))
	}
	if c.EstimateOffset != nil {
		opts = append(opts, params.WithEstimateOffset(*c.EstimateOffset))
	}
	if c.BayesFactorThreshold != nil {
		opts = append(opts, params.WithBayesFactorThreshold(*c.BayesFactorThreshold))
	}
	if c.RunlengthThreshold != nil {
		opts = append(opts, params.WithRunlengthThreshold(*c.RunlengthThreshold))
	}
	if c.BlunderMinimum != nil || c.BlunderPercent != nil || c.BlunderScalar != nil {
		var min, pct, scalar float64
		if c.BlunderMinimum != nil {
			min = *c.BlunderMinimum
		}
		if c.BlunderPercent != nil {
			pct = *c.BlunderPercent
		}
		if c.BlunderScalar != nil {
			scalar = *c.BlunderScalar
		}
		opts = append(opts, params.WithBlunderGate(min, pct, scalar))
	}
	if c.CaptureDistanceScale != nil {
		opts = append(opts, params.WithCaptureDistanceScale(*c.CaptureDistanceScale))
	}
	if c.ConfidenceIntervalScale != nil {
		opts = append(opts, params.WithConfidenceIntervalScale(*c.ConfidenceIntervalScale))
	}
	return opts
}

// GetCacheCapacity returns the configured HyperCUBE resident-tile limit,
// defaulting to hypercube.DefaultCapacity.
func (c *TuningConfig) GetCacheCapacity() int {
	if c.CacheCapacity == nil {
		return hypercube.DefaultCapacity
	}
	return *c.CacheCapacity
}

// GetCacheExpiry returns the configured HyperCUBE tile expiry, defaulting
// to hypercube.DefaultExpiry.
func (c *TuningConfig) GetCacheExpiry() time.Duration {
	if c.CacheExpirySeconds == nil {
		return hypercube.DefaultExpiry
	}
	return time.Duration(*c.CacheExpirySeconds) * time.Second
}

// GetMaxTileBytes returns the configured per-tile memory budget used by
// hypercube.EstimateTileSide, defaulting to 64MB.
func (c *TuningConfig) GetMaxTileBytes() int64 {
	if c.MaxTileBytes == nil {
		return 64 * 1024 * 1024
	}
	return *c.MaxTileBytes
}
