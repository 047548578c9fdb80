package tensor

import "math"

// Filter selects the resampling kernel used by Resize.
type Filter int

const (
	// FilterBilinear interpolates linearly between the four nearest source
	// pixels; with antialiasing the kernel support widens on downscale.
	FilterBilinear Filter = iota
	// FilterNearest picks the nearest source pixel.
	FilterNearest
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	default:
		return "bilinear"
	}
}

// Resize resamples src to (height, width) per channel. Sampling uses
// half-pixel centers with edges clamped, so a same-size resize is the
// identity. Antialiasing only affects bilinear downscaling, where it widens
// the triangle kernel by the inverse scale to average over the source pixels
// each destination pixel covers.
func Resize(src Tensor, height, width int, filter Filter, antialias bool) Tensor {
	if height == src.Height && width == src.Width {
		dst := Tensor{Channels: src.Channels, Height: height, Width: width, Data: make([]float32, len(src.Data))}
		copy(dst.Data, src.Data)
		return dst
	}
	if filter == FilterNearest {
		return resizeNearest(src, height, width)
	}
	return resizeBilinear(src, height, width, antialias)
}

func resizeNearest(src Tensor, height, width int) Tensor {
	dst := New(src.Channels, height, width)
	ratioY := float64(src.Height) / float64(height)
	ratioX := float64(src.Width) / float64(width)

	for c := 0; c < src.Channels; c++ {
		srcPlane := src.Data[c*src.Height*src.Width : (c+1)*src.Height*src.Width]
		dstPlane := dst.Data[c*height*width : (c+1)*height*width]
		for y := 0; y < height; y++ {
			sy := clampInt(int((float64(y)+0.5)*ratioY), 0, src.Height-1)
			for x := 0; x < width; x++ {
				sx := clampInt(int((float64(x)+0.5)*ratioX), 0, src.Width-1)
				dstPlane[y*width+x] = srcPlane[sy*src.Width+sx]
			}
		}
	}
	return dst
}

// axisWeights holds the precomputed contribution of source samples to one
// destination index along a single axis.
type axisWeights struct {
	start   []int
	weights [][]float32
}

// triangleWeights builds triangle-kernel weights mapping srcSize samples to
// dstSize samples. The kernel support is 1 source pixel, widened by the
// inverse scale when antialias is set and the axis is shrinking. At the
// edges the window is clipped to the valid source range and renormalized.
func triangleWeights(srcSize, dstSize int, antialias bool) axisWeights {
	ratio := float64(srcSize) / float64(dstSize)
	scale := 1.0
	if antialias && ratio > 1 {
		scale = ratio
	}

	aw := axisWeights{
		start:   make([]int, dstSize),
		weights: make([][]float32, dstSize),
	}
	for i := 0; i < dstSize; i++ {
		center := (float64(i)+0.5)*ratio - 0.5
		lo := max(int(math.Ceil(center-scale)), 0)
		hi := min(int(math.Floor(center+scale)), srcSize-1)

		var sum float64
		raw := make([]float64, 0, hi-lo+1)
		for j := lo; j <= hi; j++ {
			w := 1 - math.Abs(float64(j)-center)/scale
			if w < 0 {
				w = 0
			}
			raw = append(raw, w)
			sum += w
		}

		aw.start[i] = lo
		ws := make([]float32, len(raw))
		for k, w := range raw {
			ws[k] = float32(w / sum)
		}
		aw.weights[i] = ws
	}
	return aw
}

func resizeBilinear(src Tensor, height, width int, antialias bool) Tensor {
	wx := triangleWeights(src.Width, width, antialias)
	wy := triangleWeights(src.Height, height, antialias)

	dst := New(src.Channels, height, width)
	// Horizontal pass into a (srcHeight, width) buffer, then vertical.
	tmp := make([]float32, src.Height*width)

	for c := 0; c < src.Channels; c++ {
		srcPlane := src.Data[c*src.Height*src.Width : (c+1)*src.Height*src.Width]
		dstPlane := dst.Data[c*height*width : (c+1)*height*width]

		for y := 0; y < src.Height; y++ {
			row := srcPlane[y*src.Width : (y+1)*src.Width]
			for x := 0; x < width; x++ {
				var acc float32
				for k, w := range wx.weights[x] {
					acc += w * row[wx.start[x]+k]
				}
				tmp[y*width+x] = acc
			}
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				var acc float32
				for k, w := range wy.weights[y] {
					acc += w * tmp[(wy.start[y]+k)*width+x]
				}
				dstPlane[y*width+x] = acc
			}
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
