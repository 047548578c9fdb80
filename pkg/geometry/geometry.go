// Package geometry implements the canvas selection math for tiled image
// preprocessing: enumerating the tile-aligned canvas resolutions allowed by a
// tile budget, picking the best canvas for a given image, and computing the
// distortion-free size an image should be resized to inside that canvas.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig indicates an invalid tile size, tile budget, or explicit
// resolution list. It is always detected before any pixel work begins.
var ErrInvalidConfig = errors.New("invalid config")

// Resolution is a (height, width) pair in pixels. Canvas resolutions are
// always multiples of the tile size in both dimensions.
type Resolution struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Area returns the total pixel area of the resolution.
func (r Resolution) Area() int {
	return r.Height * r.Width
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Height, r.Width)
}

// GridShape is the (rows, cols) count of tiles along each canvas axis.
// Rows*Cols equals the number of tiles the canvas splits into.
type GridShape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// NumTiles returns the total tile count of the grid.
func (g GridShape) NumTiles() int {
	return g.Rows * g.Cols
}

func (g GridShape) String() string {
	return fmt.Sprintf("(%d, %d)", g.Rows, g.Cols)
}

// SupportedResolutions enumerates every canvas resolution whose tile grid
// fits the budget: all (rows*tileSize, cols*tileSize) with rows, cols >= 1
// and rows*cols <= maxTiles. The result has no duplicates; ordering is not
// significant.
func SupportedResolutions(tileSize, maxTiles int) ([]Resolution, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %d", ErrInvalidConfig, tileSize)
	}
	if maxTiles <= 0 {
		return nil, fmt.Errorf("%w: max tiles must be positive, got %d", ErrInvalidConfig, maxTiles)
	}

	resolutions := make([]Resolution, 0, maxTiles*2)
	for rows := 1; rows <= maxTiles; rows++ {
		for cols := 1; rows*cols <= maxTiles; cols++ {
			resolutions = append(resolutions, Resolution{
				Height: rows * tileSize,
				Width:  cols * tileSize,
			})
		}
	}
	return resolutions, nil
}

// BestFitCanvas picks exactly one canvas from candidates for an image of the
// given size.
//
// Each candidate is scored by the scale the image must be multiplied by to be
// inscribed in it: min(canvas.h/image.h, canvas.w/image.w). Candidates with
// scale >= 1 can hold the image without upscaling; when any exist the choice
// stays within that subset, so an image is never upscaled if a no-upscale
// canvas is available. With resizeToMaxCanvas the largest such scale wins
// (use as many tiles as possible), otherwise the smallest (tightest fit,
// least padding). If every candidate would require downscaling, the one
// needing the least downscaling wins. Remaining ties resolve to the smallest
// canvas area, then the smallest height.
func BestFitCanvas(imageSize Resolution, candidates []Resolution, resizeToMaxCanvas bool) (Resolution, error) {
	if len(candidates) == 0 {
		return Resolution{}, fmt.Errorf("%w: empty candidate set", ErrInvalidConfig)
	}
	if imageSize.Height <= 0 || imageSize.Width <= 0 {
		return Resolution{}, fmt.Errorf("%w: image size %s has zero area", ErrInvalidConfig, imageSize)
	}

	scales := make([]float64, len(candidates))
	for i, c := range candidates {
		scaleH := float64(c.Height) / float64(imageSize.Height)
		scaleW := float64(c.Width) / float64(imageSize.Width)
		scales[i] = math.Min(scaleH, scaleW)
	}

	selected := math.NaN()
	for _, s := range scales {
		if s < 1 {
			continue
		}
		if math.IsNaN(selected) {
			selected = s
		} else if resizeToMaxCanvas {
			selected = math.Max(selected, s)
		} else {
			selected = math.Min(selected, s)
		}
	}
	if math.IsNaN(selected) {
		// No downscale-free candidate; least downscaling wins.
		for _, s := range scales {
			if math.IsNaN(selected) || s > selected {
				selected = s
			}
		}
	}

	best := Resolution{}
	found := false
	for i, c := range candidates {
		if scales[i] != selected {
			continue
		}
		if !found {
			best = c
			found = true
			continue
		}
		if c.Area() < best.Area() || (c.Area() == best.Area() && c.Height < best.Height) {
			best = c
		}
	}
	return best, nil
}

// InscribedSize computes the largest size with the same aspect ratio as
// imageSize that fits within canvas. With maxEdge > 0 the per-axis resize
// target is additionally limited to min(max(imageDim, maxEdge), canvasDim)
// before the scale is taken, which caps canvas growth for small images while
// never forcing a downscale below the original size.
//
// Both returned dimensions are >= 1 and never exceed the corresponding canvas
// dimension.
func InscribedSize(imageSize, canvas Resolution, maxEdge int) Resolution {
	targetH := canvas.Height
	targetW := canvas.Width
	if maxEdge > 0 {
		targetH = min(max(imageSize.Height, maxEdge), canvas.Height)
		targetW = min(max(imageSize.Width, maxEdge), canvas.Width)
	}

	scaleH := float64(targetH) / float64(imageSize.Height)
	scaleW := float64(targetW) / float64(imageSize.Width)
	scale := math.Min(scaleH, scaleW)

	h := min(int(math.Floor(float64(imageSize.Height)*scale)), targetH)
	w := min(int(math.Floor(float64(imageSize.Width)*scale)), targetW)
	return Resolution{Height: max(h, 1), Width: max(w, 1)}
}
