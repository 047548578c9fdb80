package tensor

import (
	"math"
	"testing"
)

func constantTensor(channels, height, width int, v float32) Tensor {
	t := New(channels, height, width)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

func TestResizeIdentity(t *testing.T) {
	src := FromImage(createTestImage(13, 7))

	for _, filter := range []Filter{FilterBilinear, FilterNearest} {
		dst := Resize(src, src.Height, src.Width, filter, false)
		if !src.Equal(dst, 0) {
			t.Errorf("%s: same-size resize is not the identity", filter)
		}

		// The copy must not alias the source.
		dst.Data[0] = -1
		if src.Data[0] == -1 {
			t.Errorf("%s: resize output aliases the source", filter)
		}
	}
}

func TestResizeNearestUpscale(t *testing.T) {
	src := New(1, 2, 2)
	src.Data = []float32{0.1, 0.2, 0.3, 0.4}

	dst := Resize(src, 4, 4, FilterNearest, false)

	// Each source pixel expands to a 2x2 block.
	expected := []float32{
		0.1, 0.1, 0.2, 0.2,
		0.1, 0.1, 0.2, 0.2,
		0.3, 0.3, 0.4, 0.4,
		0.3, 0.3, 0.4, 0.4,
	}
	for i, want := range expected {
		if dst.Data[i] != want {
			t.Errorf("element %d: expected %f, got %f", i, want, dst.Data[i])
		}
	}
}

func TestResizeBilinearConstant(t *testing.T) {
	src := constantTensor(3, 10, 17, 0.5)

	for _, antialias := range []bool{false, true} {
		for _, shape := range [][2]int{{20, 34}, {5, 9}, {224, 224}, {3, 50}} {
			dst := Resize(src, shape[0], shape[1], FilterBilinear, antialias)
			for i, v := range dst.Data {
				if math.Abs(float64(v)-0.5) > 1e-5 {
					t.Fatalf("antialias=%v shape=%v element %d: expected 0.5, got %f",
						antialias, shape, i, v)
				}
			}
		}
	}
}

func TestResizeBilinearMidpoint(t *testing.T) {
	// Upscaling 1x2 to 1x4 with half-pixel centers puts the two middle
	// destination pixels a quarter of the way between the sources.
	src := New(1, 1, 2)
	src.Data = []float32{0.0, 1.0}

	dst := Resize(src, 1, 4, FilterBilinear, false)

	expected := []float32{0.0, 0.25, 0.75, 1.0}
	for i, want := range expected {
		if math.Abs(float64(dst.Data[i]-want)) > 1e-6 {
			t.Errorf("element %d: expected %f, got %f", i, want, dst.Data[i])
		}
	}
}

func TestResizeAntialiasDownscaleAverages(t *testing.T) {
	// Collapsing a symmetric ramp to a single pixel with antialias must
	// produce the ramp mean; plain bilinear would sample only the center.
	src := New(1, 1, 4)
	src.Data = []float32{0.0, 0.25, 0.5, 0.75}

	dst := Resize(src, 1, 1, FilterBilinear, true)

	if math.Abs(float64(dst.Data[0]-0.375)) > 1e-5 {
		t.Errorf("expected mean 0.375, got %f", dst.Data[0])
	}
}

func TestResizeRangePreserved(t *testing.T) {
	src := FromImage(createTestImage(97, 53))

	for _, filter := range []Filter{FilterBilinear, FilterNearest} {
		for _, antialias := range []bool{false, true} {
			dst := Resize(src, 31, 211, filter, antialias)
			for i, v := range dst.Data {
				if v < -1e-5 || v > 1+1e-5 {
					t.Fatalf("%s antialias=%v element %d out of range: %f", filter, antialias, i, v)
				}
			}
		}
	}
}
