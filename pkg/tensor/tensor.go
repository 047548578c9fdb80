// Package tensor provides a minimal dense float32 tensor in CHW layout, the
// in-memory format consumed by vision encoders, plus conversions from and to
// the standard library image types.
package tensor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrUnsupportedImageShape indicates an input tensor with zero area or a
// channel count the pipeline cannot process.
var ErrUnsupportedImageShape = errors.New("unsupported image shape")

// Tensor is a dense float32 array in channel-first (CHW) layout. Data is
// contiguous with length Channels*Height*Width; the value at (c, y, x) lives
// at Data[(c*Height+y)*Width+x].
type Tensor struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// New allocates a zero-filled tensor of the given shape.
func New(channels, height, width int) Tensor {
	return Tensor{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// Index returns the flat offset of element (c, y, x).
func (t Tensor) Index(c, y, x int) int {
	return (c*t.Height+y)*t.Width + x
}

// At returns the element at (c, y, x).
func (t Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// NumElements returns the total element count.
func (t Tensor) NumElements() int {
	return t.Channels * t.Height * t.Width
}

// Validate checks that the tensor describes a non-empty 3-channel image and
// that the data length matches the shape.
func (t Tensor) Validate() error {
	if t.Height <= 0 || t.Width <= 0 {
		return fmt.Errorf("%w: zero-area image %dx%d", ErrUnsupportedImageShape, t.Height, t.Width)
	}
	if t.Channels != 3 {
		return fmt.Errorf("%w: expected 3 channels, got %d", ErrUnsupportedImageShape, t.Channels)
	}
	if len(t.Data) != t.NumElements() {
		return fmt.Errorf("%w: data length %d does not match shape (%d, %d, %d)",
			ErrUnsupportedImageShape, len(t.Data), t.Channels, t.Height, t.Width)
	}
	return nil
}

// Equal reports whether two tensors have the same shape and elementwise
// values within tol.
func (t Tensor) Equal(other Tensor, tol float32) bool {
	if t.Channels != other.Channels || t.Height != other.Height || t.Width != other.Width {
		return false
	}
	for i := range t.Data {
		d := t.Data[i] - other.Data[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

// FromImage converts an image to a 3-channel CHW tensor with values in
// [0, 1]. Grayscale inputs expand to three identical channels; any alpha
// channel should be composited away by the caller first.
func FromImage(img image.Image) Tensor {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	t := New(3, h, w)
	plane := h * w

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*w + x
			t.Data[idx] = float32(r>>8) / 255.0
			t.Data[plane+idx] = float32(g>>8) / 255.0
			t.Data[2*plane+idx] = float32(b>>8) / 255.0
		}
	}
	return t
}

// ToImage converts a 3-channel tensor with values in [0, 1] back to an NRGBA
// image, clamping out-of-range values.
func ToImage(t Tensor) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	plane := t.Height * t.Width

	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			idx := y*t.Width + x
			img.SetNRGBA(x, y, color.NRGBA{
				R: clampByte(t.Data[idx]),
				G: clampByte(t.Data[plane+idx]),
				B: clampByte(t.Data[2*plane+idx]),
				A: 255,
			})
		}
	}
	return img
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
