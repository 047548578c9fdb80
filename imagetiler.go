// Package imagetiler prepares variable-sized images for fixed-input-size
// vision encoders.
//
// Given an image, the library chooses a tile-aligned canvas under a tile
// budget, resizes the image into the canvas without distortion, pads the
// remainder, splits the canvas into fixed-size square tiles, and normalizes
// pixel values. It reports the resulting (rows, cols) tile grid so a
// downstream model knows how the tiles cover the original image.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		imagetiler "github.com/menta2k/image-tiler"
//	)
//
//	func main() {
//		tiler := imagetiler.New()
//
//		result, err := tiler.PreprocessFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("grid %s, %d tiles of %d px\n",
//			result.Grid, len(result.Tiles), tiler.Config().TileSize)
//	}
//
// The package consists of four main components:
//
// 1. Geometry (pkg/geometry): canvas enumeration, best-fit selection, inscribed size
// 2. Preprocess (pkg/preprocess): resize/pad/tile/normalize pipelines over float32 tensors
// 3. Processing (pkg/processing): decode and export boundary (jpeg/png/webp, URLs)
// 4. Segment (pkg/segment): tile tensor persistence for model loaders
//
// The core never upscales an image when a canvas large enough to hold it
// exists; resize-to-max-canvas trades padding for more tiles of detail when
// higher downstream resolution is wanted.
package imagetiler

import (
	"image"
	"io"

	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/processing"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// Version of the image tiler library
const Version = "1.0.0"

// ImageTiler provides a high-level interface for tile-based preprocessing
type ImageTiler struct {
	processor *processing.Processor
	config    preprocess.Config
}

// New creates a new ImageTiler with the default CLIP-style configuration
func New() *ImageTiler {
	return &ImageTiler{
		processor: processing.NewProcessor(),
		config:    preprocess.DefaultConfig(),
	}
}

// NewWithConfig creates a new ImageTiler with a custom configuration
func NewWithConfig(cfg preprocess.Config) (*ImageTiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ImageTiler{
		processor: processing.NewProcessor(),
		config:    cfg,
	}, nil
}

// Config returns the active preprocessing configuration
func (it *ImageTiler) Config() preprocess.Config {
	return it.config
}

// SupportedResolutions returns the candidate canvas resolutions for the
// active configuration
func (it *ImageTiler) SupportedResolutions() ([]geometry.Resolution, error) {
	return it.config.Resolutions()
}

// PreprocessImage preprocesses a decoded image into normalized tiles
func (it *ImageTiler) PreprocessImage(img image.Image) (*preprocess.Result, error) {
	t, err := it.processor.ImageToTensor(img)
	if err != nil {
		return nil, err
	}
	return preprocess.Preprocess(t, it.config)
}

// PreprocessFile loads an image from a file path or URL and preprocesses it
func (it *ImageTiler) PreprocessFile(source string) (*preprocess.Result, error) {
	t, err := it.processor.LoadTensor(source)
	if err != nil {
		return nil, err
	}
	return preprocess.Preprocess(t, it.config)
}

// PreprocessReader decodes an image from a reader and preprocesses it
func (it *ImageTiler) PreprocessReader(r io.Reader) (*preprocess.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, err := it.processor.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return it.PreprocessImage(img)
}

// PreprocessTensor preprocesses a float32 CHW tensor with values in [0, 1]
func (it *ImageTiler) PreprocessTensor(t tensor.Tensor) (*preprocess.Result, error) {
	return preprocess.Preprocess(t, it.config)
}

// PreprocessBatch preprocesses independent images concurrently
func (it *ImageTiler) PreprocessBatch(images []image.Image, workers int) ([]*preprocess.Result, error) {
	tensors := make([]tensor.Tensor, len(images))
	for i, img := range images {
		t, err := it.processor.ImageToTensor(img)
		if err != nil {
			return nil, err
		}
		tensors[i] = t
	}
	return preprocess.PreprocessBatch(tensors, it.config, workers)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
