// Package processing is the pixel-format boundary around the tiling core: it
// decodes images from files, URLs, or readers into the float32 CHW tensors
// the core consumes, and exports tiles back to common image formats.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/model/imageproc"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// Processor handles image decode and export around the tiling core
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	low := strings.ToLower(path)
	if strings.HasSuffix(low, ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Image-Tiler/1.0 (+https://github.com/menta2k/image-tiler)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}

	return p.DecodeImage(imageData)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// DecodeImage decodes an image from byte data with WebP support
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	reader := bytes.NewReader(data)
	if img, _, err := image.Decode(reader); err == nil {
		return img, nil
	}

	// Try WebP decode
	reader = bytes.NewReader(data)
	if img, err := webp.Decode(reader); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// ImageToTensor converts a decoded image into the 3-channel CHW float32
// tensor with values in [0, 1] that the preprocessing core consumes. Alpha is
// composited away and grayscale expands to three channels.
func (p *Processor) ImageToTensor(img image.Image) (tensor.Tensor, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return tensor.Tensor{}, fmt.Errorf("%w: %dx%d", tensor.ErrUnsupportedImageShape, bounds.Dy(), bounds.Dx())
	}

	t := tensor.FromImage(imageproc.Composite(img))
	if err := t.Validate(); err != nil {
		return tensor.Tensor{}, err
	}
	return t, nil
}

// LoadTensor loads an image source (path or URL) and converts it to a tensor
func (p *Processor) LoadTensor(source string) (tensor.Tensor, error) {
	img, err := p.LoadImageSmart(source)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return p.ImageToTensor(img)
}

// TileToImage converts a normalized tile back to a viewable image by
// inverting the normalization and clamping to [0, 1]
func (p *Processor) TileToImage(tile tensor.Tensor, mean, std []float32) (image.Image, error) {
	denorm, err := preprocess.Denormalize(tile, mean, std)
	if err != nil {
		return nil, err
	}
	return tensor.ToImage(denorm), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// SaveTiles writes every tile of a result to outputDir as
// <base>_tile_<row>_<col>.<format>, denormalizing with the given statistics.
func (p *Processor) SaveTiles(res *preprocess.Result, mean, std []float32, outputDir, base, format string, quality int, lossless bool) error {
	for i, tile := range res.Tiles {
		img, err := p.TileToImage(tile, mean, std)
		if err != nil {
			return fmt.Errorf("tile %d: %w", i, err)
		}

		row := i / res.Grid.Cols
		col := i % res.Grid.Cols
		name := fmt.Sprintf("%s_tile_%d_%d.%s", base, row, col, format)
		if err := p.SaveImage(img, filepath.Join(outputDir, name), format, quality, lossless); err != nil {
			return fmt.Errorf("failed to save tile %s: %w", name, err)
		}
	}
	return nil
}
