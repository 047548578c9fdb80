package tensor

import (
	"errors"
	"image"
	"image/color"
	"testing"
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

func TestNewShape(t *testing.T) {
	tn := New(3, 4, 5)

	if tn.Channels != 3 || tn.Height != 4 || tn.Width != 5 {
		t.Errorf("unexpected shape (%d, %d, %d)", tn.Channels, tn.Height, tn.Width)
	}

	if len(tn.Data) != 60 {
		t.Errorf("expected 60 elements, got %d", len(tn.Data))
	}

	for i, v := range tn.Data {
		if v != 0 {
			t.Fatalf("element %d not zero-initialized: %f", i, v)
		}
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 128, 255, 255})

	tn := FromImage(img)

	if tn.Channels != 3 || tn.Height != 1 || tn.Width != 2 {
		t.Fatalf("unexpected shape (%d, %d, %d)", tn.Channels, tn.Height, tn.Width)
	}

	if tn.At(0, 0, 0) != 1.0 || tn.At(1, 0, 0) != 0.0 || tn.At(2, 0, 0) != 0.0 {
		t.Errorf("red pixel converted to (%f, %f, %f)", tn.At(0, 0, 0), tn.At(1, 0, 0), tn.At(2, 0, 0))
	}

	expectedG := float32(128) / 255.0
	if tn.At(0, 0, 1) != 0.0 || tn.At(1, 0, 1) != expectedG || tn.At(2, 0, 1) != 1.0 {
		t.Errorf("second pixel converted to (%f, %f, %f)", tn.At(0, 0, 1), tn.At(1, 0, 1), tn.At(2, 0, 1))
	}
}

func TestFromImageGrayscale(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			img.SetGray(x, y, color.Gray{Y: 100})
		}
	}

	tn := FromImage(img)

	expected := float32(100) / 255.0
	for c := 0; c < 3; c++ {
		if v := tn.At(c, 1, 1); v != expected {
			t.Errorf("channel %d: expected %f, got %f", c, expected, v)
		}
	}
}

func TestFromImageRange(t *testing.T) {
	tn := FromImage(createTestImage(64, 48))

	for i, v := range tn.Data {
		if v < 0 || v > 1 {
			t.Fatalf("element %d out of [0, 1]: %f", i, v)
		}
	}
}

func TestToImageRoundTrip(t *testing.T) {
	src := createTestImage(16, 16)
	tn := FromImage(src)
	img := ToImage(tn)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r0, g0, b0, _ := src.At(x, y).RGBA()
			r1, g1, b1, _ := img.At(x, y).RGBA()
			if r0>>8 != r1>>8 || g0>>8 != g1>>8 || b0>>8 != b1>>8 {
				t.Fatalf("pixel (%d, %d) changed: (%d, %d, %d) -> (%d, %d, %d)",
					x, y, r0>>8, g0>>8, b0>>8, r1>>8, g1>>8, b1>>8)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	if err := FromImage(createTestImage(8, 8)).Validate(); err != nil {
		t.Errorf("valid tensor rejected: %v", err)
	}

	bad := New(1, 8, 8)
	if err := bad.Validate(); !errors.Is(err, ErrUnsupportedImageShape) {
		t.Errorf("expected ErrUnsupportedImageShape for 1 channel, got %v", err)
	}

	empty := New(3, 0, 8)
	if err := empty.Validate(); !errors.Is(err, ErrUnsupportedImageShape) {
		t.Errorf("expected ErrUnsupportedImageShape for zero area, got %v", err)
	}

	truncated := New(3, 8, 8)
	truncated.Data = truncated.Data[:10]
	if err := truncated.Validate(); !errors.Is(err, ErrUnsupportedImageShape) {
		t.Errorf("expected ErrUnsupportedImageShape for short data, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	a := FromImage(createTestImage(8, 8))
	b := FromImage(createTestImage(8, 8))

	if !a.Equal(b, 0) {
		t.Error("identical tensors compare unequal")
	}

	b.Data[0] += 0.5
	if a.Equal(b, 0.1) {
		t.Error("tensors differing by 0.5 compare equal at tolerance 0.1")
	}
	if !a.Equal(b, 0.6) {
		t.Error("tensors differing by 0.5 compare unequal at tolerance 0.6")
	}

	c := New(3, 8, 9)
	if a.Equal(c, 1) {
		t.Error("tensors with different shapes compare equal")
	}
}
