package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// Config holds the application configuration
type Config struct {
	Preprocess PreprocessConfig `json:"preprocess"`
	Output     OutputConfig     `json:"output"`
}

// PreprocessConfig holds configuration for the tiling pipeline
type PreprocessConfig struct {
	TileSize            int                   `json:"tile_size"`
	MaxNumTiles         int                   `json:"max_num_tiles"`
	ResizeToMaxCanvas   bool                  `json:"resize_to_max_canvas"`
	Mean                []float32             `json:"mean"`
	Std                 []float32             `json:"std"`
	Resample            string                `json:"resample"`
	Antialias           bool                  `json:"antialias"`
	PossibleResolutions []geometry.Resolution `json:"possible_resolutions,omitempty"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
	Quality   int    `json:"quality"`
	Lossless  bool   `json:"lossless"`
	Segment   bool   `json:"segment"`
}

// Default returns a configuration with default values
func Default() *Config {
	defaults := preprocess.DefaultConfig()
	return &Config{
		Preprocess: PreprocessConfig{
			TileSize:          defaults.TileSize,
			MaxNumTiles:       defaults.MaxNumTiles,
			ResizeToMaxCanvas: defaults.ResizeToMaxCanvas,
			Mean:              defaults.Mean,
			Std:               defaults.Std,
			Resample:          defaults.Resample.String(),
			Antialias:         defaults.Antialias,
		},
		Output: OutputConfig{
			Format:    "png",
			OutputDir: "./output",
			Quality:   90,
			Lossless:  false,
			Segment:   true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.PreprocessOptions(); err != nil {
		return err
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output quality must be between 1 and 100, got %d", c.Output.Quality)
	}
	switch c.Output.Format {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	return nil
}

// PreprocessOptions converts the JSON-facing preprocess section into the
// validated core configuration
func (c *Config) PreprocessOptions() (preprocess.Config, error) {
	filter, err := ParseFilter(c.Preprocess.Resample)
	if err != nil {
		return preprocess.Config{}, err
	}

	cfg := preprocess.Config{
		TileSize:            c.Preprocess.TileSize,
		MaxNumTiles:         c.Preprocess.MaxNumTiles,
		ResizeToMaxCanvas:   c.Preprocess.ResizeToMaxCanvas,
		Mean:                c.Preprocess.Mean,
		Std:                 c.Preprocess.Std,
		Resample:            filter,
		Antialias:           c.Preprocess.Antialias,
		PossibleResolutions: c.Preprocess.PossibleResolutions,
	}
	if err := cfg.Validate(); err != nil {
		return preprocess.Config{}, err
	}
	return cfg, nil
}

// ParseFilter maps a filter name to the tensor resize filter
func ParseFilter(name string) (tensor.Filter, error) {
	switch name {
	case "", "bilinear":
		return tensor.FilterBilinear, nil
	case "nearest":
		return tensor.FilterNearest, nil
	default:
		return 0, fmt.Errorf("unsupported resample filter: %s", name)
	}
}
