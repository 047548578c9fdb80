package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// createTestImage creates a gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8(128)
			img.Set(x, y, color.NRGBA{r, g, b, 255})
		}
	}

	return img
}

func TestImageToTensor(t *testing.T) {
	p := NewProcessor()

	tn, err := p.ImageToTensor(createTestImage(40, 30))
	if err != nil {
		t.Fatalf("ImageToTensor failed: %v", err)
	}

	if tn.Channels != 3 || tn.Height != 30 || tn.Width != 40 {
		t.Errorf("unexpected shape (%d, %d, %d)", tn.Channels, tn.Height, tn.Width)
	}

	for i, v := range tn.Data {
		if v < 0 || v > 1 {
			t.Fatalf("element %d out of [0, 1]: %f", i, v)
		}
	}
}

func TestImageToTensorZeroArea(t *testing.T) {
	p := NewProcessor()

	_, err := p.ImageToTensor(image.NewNRGBA(image.Rect(0, 0, 0, 10)))
	if !errors.Is(err, tensor.ErrUnsupportedImageShape) {
		t.Errorf("expected ErrUnsupportedImageShape, got %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	p := NewProcessor()

	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(8, 8)); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}

	img, err := p.DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected decoded size %v", img.Bounds())
	}
}

func TestDecodeImageUnknownFormat(t *testing.T) {
	p := NewProcessor()

	if _, err := p.DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected an error for unknown data")
	}
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "test.png")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	if err := png.Encode(f, createTestImage(16, 12)); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	f.Close()

	img, err := p.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 12 {
		t.Errorf("unexpected loaded size %v", img.Bounds())
	}
}

func TestTileToImage(t *testing.T) {
	p := NewProcessor()
	cfg := preprocess.DefaultConfig()

	src := tensor.FromImage(createTestImage(32, 32))
	normalized, err := preprocess.Normalize(src, cfg.Mean, cfg.Std)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	img, err := p.TileToImage(normalized, cfg.Mean, cfg.Std)
	if err != nil {
		t.Fatalf("TileToImage failed: %v", err)
	}

	// Denormalizing should restore the original pixels within one level.
	restored := tensor.FromImage(img)
	for i := range src.Data {
		d := src.Data[i] - restored.Data[i]
		if d < -0.01 || d > 0.01 {
			t.Fatalf("element %d drifted: %f -> %f", i, src.Data[i], restored.Data[i])
		}
	}
}

func TestSaveTiles(t *testing.T) {
	p := NewProcessor()
	cfg := preprocess.DefaultConfig()
	dir := t.TempDir()

	tn, err := p.ImageToTensor(createTestImage(400, 100))
	if err != nil {
		t.Fatalf("ImageToTensor failed: %v", err)
	}
	res, err := preprocess.Preprocess(tn, cfg)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if err := p.SaveTiles(res, cfg.Mean, cfg.Std, dir, "sample", "png", 90, false); err != nil {
		t.Fatalf("SaveTiles failed: %v", err)
	}

	for i := range res.Tiles {
		row := i / res.Grid.Cols
		col := i % res.Grid.Cols
		path := filepath.Join(dir, fmt.Sprintf("sample_tile_%d_%d.png", row, col))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing tile file %s: %v", path, err)
		}
	}
}
