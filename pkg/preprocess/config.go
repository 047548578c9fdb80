// Package preprocess turns a variable-sized image tensor into a sequence of
// fixed-size normalized tiles plus the (rows, cols) grid shape describing how
// the tiles cover the original image. Two pipelines are provided: Preprocess
// builds the padded canvas step by step, PreprocessFused writes the tiles in
// a single pass; they produce identical output.
package preprocess

import (
	"errors"
	"fmt"

	"github.com/ollama/ollama/model/imageproc"

	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// ErrShapeMismatch indicates an internal invariant violation such as a canvas
// that is not an exact tile-size multiple. It is a defect, not a user input
// error, and is never silently corrected.
var ErrShapeMismatch = errors.New("shape mismatch")

// Config holds the immutable preprocessing parameters. A validated Config is
// read-only and safe to share across concurrent calls.
type Config struct {
	// TileSize is the side length of each square tile in pixels.
	TileSize int
	// MaxNumTiles bounds rows*cols of the chosen canvas grid.
	MaxNumTiles int
	// ResizeToMaxCanvas selects the largest usable canvas instead of the
	// tightest fit, trading padding for more tiles of detail.
	ResizeToMaxCanvas bool
	// Mean and Std are the per-channel normalization statistics.
	Mean []float32
	Std  []float32
	// Resample selects the resize kernel; Antialias widens it on downscale.
	Resample  tensor.Filter
	Antialias bool
	// PossibleResolutions, when non-empty, replaces budget enumeration with
	// an explicit canvas list. Each entry must be a TileSize multiple in
	// both dimensions.
	PossibleResolutions []geometry.Resolution
}

// DefaultConfig returns the standard CLIP-style configuration: 224px tiles,
// a budget of four, and the CLIP normalization statistics.
func DefaultConfig() Config {
	return Config{
		TileSize:    224,
		MaxNumTiles: 4,
		Mean:        imageproc.ClipDefaultMean[:],
		Std:         imageproc.ClipDefaultSTD[:],
		Resample:    tensor.FilterBilinear,
		Antialias:   false,
	}
}

// Validate checks the configuration before any pixel work begins.
func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("%w: tile size must be positive, got %d", geometry.ErrInvalidConfig, c.TileSize)
	}
	if c.MaxNumTiles <= 0 {
		return fmt.Errorf("%w: max tiles must be positive, got %d", geometry.ErrInvalidConfig, c.MaxNumTiles)
	}
	if len(c.Mean) != 3 || len(c.Std) != 3 {
		return fmt.Errorf("%w: mean and std must have 3 entries, got %d and %d",
			geometry.ErrInvalidConfig, len(c.Mean), len(c.Std))
	}
	for i, s := range c.Std {
		if s == 0 {
			return fmt.Errorf("%w: std[%d] is zero", geometry.ErrInvalidConfig, i)
		}
	}
	for _, r := range c.PossibleResolutions {
		if r.Height <= 0 || r.Width <= 0 || r.Height%c.TileSize != 0 || r.Width%c.TileSize != 0 {
			return fmt.Errorf("%w: resolution %s is not a positive multiple of tile size %d",
				geometry.ErrInvalidConfig, r, c.TileSize)
		}
	}
	return nil
}

// Resolutions returns the candidate canvas set: the explicit list when
// provided, otherwise the resolutions enumerated from the tile budget.
func (c Config) Resolutions() ([]geometry.Resolution, error) {
	if len(c.PossibleResolutions) > 0 {
		return c.PossibleResolutions, nil
	}
	return geometry.SupportedResolutions(c.TileSize, c.MaxNumTiles)
}

// maxEdge returns the inscribe cap: unlimited when resizing to the maximum
// canvas, otherwise the tile size, which keeps small images from being
// upscaled past a single tile.
func (c Config) maxEdge() int {
	if c.ResizeToMaxCanvas {
		return 0
	}
	return c.TileSize
}
