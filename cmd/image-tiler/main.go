package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/image-tiler/internal/config"
	"github.com/menta2k/image-tiler/internal/utils"
	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/processing"
	"github.com/menta2k/image-tiler/pkg/segment"
)

// manifest is written next to the output of every input image
type manifest struct {
	Source        string              `json:"source"`
	ImageSize     geometry.Resolution `json:"image_size"`
	Canvas        geometry.Resolution `json:"canvas"`
	InscribedSize geometry.Resolution `json:"inscribed_size"`
	Grid          geometry.GridShape  `json:"grid"`
	NumTiles      int                 `json:"num_tiles"`
	TileSize      int                 `json:"tile_size"`
	SegmentFile   string              `json:"segment_file,omitempty"`
}

func main() {
	var in, outDir, cfgPath string
	var tileSize, maxTiles int
	var resizeMax, antialias bool
	var filter string
	var ext string
	var quality int
	var lossless bool
	var writeSegment, writeTiles bool

	flag.StringVar(&in, "in", "", "input image path, URL, or directory (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&cfgPath, "config", "", "optional JSON config file (flags override)")

	flag.IntVar(&tileSize, "tile-size", 224, "tile side length in pixels")
	flag.IntVar(&maxTiles, "max-tiles", 4, "maximum number of tiles per image")
	flag.BoolVar(&resizeMax, "resize-max", false, "resize to the largest usable canvas instead of the tightest fit")
	flag.StringVar(&filter, "filter", "bilinear", "resample filter: bilinear|nearest")
	flag.BoolVar(&antialias, "antialias", false, "antialias on downscale (bilinear only)")

	flag.StringVar(&ext, "ext", "png", "output format for tile images: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP lossless mode")
	flag.BoolVar(&writeSegment, "segment", true, "write tiles as a tensor segment file")
	flag.BoolVar(&writeTiles, "tiles", false, "write each tile as an image file")
	flag.Parse()

	if in == "" {
		fmt.Fprintln(os.Stderr, "usage: image-tiler -in <image|dir|url> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	appCfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		appCfg = loaded
	}
	applyFlags(appCfg, tileSize, maxTiles, resizeMax, filter, antialias, ext, quality, lossless, writeSegment)
	if err := appCfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	cfg, err := appCfg.PreprocessOptions()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	inputs, err := collectInputs(in)
	if err != nil {
		log.Fatalf("input: %v", err)
	}
	if len(inputs) == 0 {
		log.Fatalf("no image files found in %s", in)
	}

	processor := processing.NewProcessor()
	for _, source := range inputs {
		if err := processOne(processor, cfg, appCfg, source, outDir, writeTiles); err != nil {
			log.Fatalf("%s: %v", source, err)
		}
	}
}

func applyFlags(appCfg *config.Config, tileSize, maxTiles int, resizeMax bool, filter string, antialias bool, ext string, quality int, lossless, writeSegment bool) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tile-size":
			appCfg.Preprocess.TileSize = tileSize
		case "max-tiles":
			appCfg.Preprocess.MaxNumTiles = maxTiles
		case "resize-max":
			appCfg.Preprocess.ResizeToMaxCanvas = resizeMax
		case "filter":
			appCfg.Preprocess.Resample = filter
		case "antialias":
			appCfg.Preprocess.Antialias = antialias
		case "ext":
			appCfg.Output.Format = ext
		case "quality":
			appCfg.Output.Quality = quality
		case "lossless":
			appCfg.Output.Lossless = lossless
		case "segment":
			appCfg.Output.Segment = writeSegment
		}
	})
}

// collectInputs expands a directory into its image files; a file or URL is
// passed through as-is
func collectInputs(in string) ([]string, error) {
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		return []string{in}, nil
	}
	if utils.DirExists(in) {
		return utils.ListImageFiles(in)
	}
	if !utils.FileExists(in) {
		return nil, fmt.Errorf("no such file or directory")
	}
	return []string{in}, nil
}

func processOne(processor *processing.Processor, cfg preprocess.Config, appCfg *config.Config, source, outDir string, writeTiles bool) error {
	t, err := processor.LoadTensor(source)
	if err != nil {
		return err
	}

	result, err := preprocess.Preprocess(t, cfg)
	if err != nil {
		return err
	}

	base := utils.BaseName(source)
	m := manifest{
		Source:        source,
		ImageSize:     geometry.Resolution{Height: t.Height, Width: t.Width},
		Canvas:        result.Canvas,
		InscribedSize: result.InscribedSize,
		Grid:          result.Grid,
		NumTiles:      len(result.Tiles),
		TileSize:      cfg.TileSize,
	}

	if appCfg.Output.Segment {
		segPath := filepath.Join(outDir, base+".tiles.bin")
		if err := segment.WriteFile(segPath, result); err != nil {
			return err
		}
		m.SegmentFile = segPath
	}

	if writeTiles {
		err := processor.SaveTiles(result, cfg.Mean, cfg.Std, outDir, base,
			appCfg.Output.Format, appCfg.Output.Quality, appCfg.Output.Lossless)
		if err != nil {
			return err
		}
	}

	manifestPath := filepath.Join(outDir, base+".json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	log.Printf("%s: %dx%d -> canvas %s, grid %s (%d tiles)",
		source, t.Height, t.Width, result.Canvas, result.Grid, len(result.Tiles))
	return nil
}
