package preprocess

import (
	"fmt"

	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// Result holds the output of one preprocessing call: the normalized tiles in
// row-major order over the canvas grid, the grid shape, and the geometry that
// produced them.
type Result struct {
	Tiles         []tensor.Tensor
	Grid          geometry.GridShape
	Canvas        geometry.Resolution
	InscribedSize geometry.Resolution
}

// Stack concatenates the tiles into a single (N, 3, tileSize, tileSize)
// float32 array in tile order.
func (r *Result) Stack() []float32 {
	if len(r.Tiles) == 0 {
		return nil
	}
	out := make([]float32, 0, len(r.Tiles)*r.Tiles[0].NumElements())
	for _, t := range r.Tiles {
		out = append(out, t.Data...)
	}
	return out
}

// Preprocess runs the reference pipeline on a 3-channel CHW tensor with
// values in [0, 1]: select the best-fit canvas, resize the image to its
// inscribed size, pad to the canvas, split into tiles, and normalize each
// tile. The input tensor is not modified.
func Preprocess(img tensor.Tensor, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	canvas, inscribed, err := planCanvas(img, cfg)
	if err != nil {
		return nil, err
	}

	padded := ResizeAndPad(img, inscribed, canvas, cfg.Resample, cfg.Antialias)

	tiles, grid, err := Tile(padded, cfg.TileSize)
	if err != nil {
		return nil, err
	}

	for i := range tiles {
		tiles[i], err = Normalize(tiles[i], cfg.Mean, cfg.Std)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Tiles:         tiles,
		Grid:          grid,
		Canvas:        canvas,
		InscribedSize: inscribed,
	}, nil
}

// planCanvas runs the pure geometry phase shared by both pipelines.
func planCanvas(img tensor.Tensor, cfg Config) (canvas, inscribed geometry.Resolution, err error) {
	candidates, err := cfg.Resolutions()
	if err != nil {
		return geometry.Resolution{}, geometry.Resolution{}, err
	}

	imageSize := geometry.Resolution{Height: img.Height, Width: img.Width}
	canvas, err = geometry.BestFitCanvas(imageSize, candidates, cfg.ResizeToMaxCanvas)
	if err != nil {
		return geometry.Resolution{}, geometry.Resolution{}, err
	}

	inscribed = geometry.InscribedSize(imageSize, canvas, cfg.maxEdge())
	if inscribed.Height > canvas.Height || inscribed.Width > canvas.Width {
		return geometry.Resolution{}, geometry.Resolution{},
			fmt.Errorf("%w: inscribed size %s exceeds canvas %s", ErrShapeMismatch, inscribed, canvas)
	}
	return canvas, inscribed, nil
}

// ResizeAndPad resizes img to the inscribed size and places it at the
// top-left of a zero-filled canvas-sized tensor, leaving the bottom/right
// margin as padding. Aspect ratio is never distorted because the inscribed
// size already preserves it.
func ResizeAndPad(img tensor.Tensor, inscribed, canvas geometry.Resolution, filter tensor.Filter, antialias bool) tensor.Tensor {
	resized := tensor.Resize(img, inscribed.Height, inscribed.Width, filter, antialias)

	padded := tensor.New(img.Channels, canvas.Height, canvas.Width)
	for c := 0; c < resized.Channels; c++ {
		for y := 0; y < resized.Height; y++ {
			srcRow := resized.Data[resized.Index(c, y, 0) : resized.Index(c, y, 0)+resized.Width]
			dstRow := padded.Data[padded.Index(c, y, 0) : padded.Index(c, y, 0)+resized.Width]
			copy(dstRow, srcRow)
		}
	}
	return padded
}

// Tile partitions a canvas-sized tensor into non-overlapping square tiles of
// side tileSize, emitted row-major (row 0 left to right, then row 1, ...),
// and returns the grid shape. The canvas must be an exact tile-size multiple
// in both dimensions; a violation means an upstream invariant was broken and
// surfaces as ErrShapeMismatch.
func Tile(padded tensor.Tensor, tileSize int) ([]tensor.Tensor, geometry.GridShape, error) {
	if tileSize <= 0 {
		return nil, geometry.GridShape{}, fmt.Errorf("%w: tile size must be positive, got %d", geometry.ErrInvalidConfig, tileSize)
	}
	if padded.Height%tileSize != 0 || padded.Width%tileSize != 0 {
		return nil, geometry.GridShape{}, fmt.Errorf("%w: canvas %dx%d is not a multiple of tile size %d",
			ErrShapeMismatch, padded.Height, padded.Width, tileSize)
	}

	grid := geometry.GridShape{
		Rows: padded.Height / tileSize,
		Cols: padded.Width / tileSize,
	}

	tiles := make([]tensor.Tensor, 0, grid.NumTiles())
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			tile := tensor.New(padded.Channels, tileSize, tileSize)
			for c := 0; c < padded.Channels; c++ {
				for y := 0; y < tileSize; y++ {
					srcOff := padded.Index(c, row*tileSize+y, col*tileSize)
					dstOff := tile.Index(c, y, 0)
					copy(tile.Data[dstOff:dstOff+tileSize], padded.Data[srcOff:srcOff+tileSize])
				}
			}
			tiles = append(tiles, tile)
		}
	}
	return tiles, grid, nil
}

// Normalize returns a copy of tile with each channel shifted and scaled:
// out[c] = (in[c] - mean[c]) / std[c].
func Normalize(tile tensor.Tensor, mean, std []float32) (tensor.Tensor, error) {
	if len(mean) != tile.Channels || len(std) != tile.Channels {
		return tensor.Tensor{}, fmt.Errorf("%w: mean/std length %d/%d does not match %d channels",
			geometry.ErrInvalidConfig, len(mean), len(std), tile.Channels)
	}
	for i, s := range std {
		if s == 0 {
			return tensor.Tensor{}, fmt.Errorf("%w: std[%d] is zero", geometry.ErrInvalidConfig, i)
		}
	}

	out := tensor.New(tile.Channels, tile.Height, tile.Width)
	plane := tile.Height * tile.Width
	for c := 0; c < tile.Channels; c++ {
		m, s := mean[c], std[c]
		for i := c * plane; i < (c+1)*plane; i++ {
			out.Data[i] = (tile.Data[i] - m) / s
		}
	}
	return out, nil
}

// Denormalize inverts Normalize: out[c] = in[c]*std[c] + mean[c].
func Denormalize(tile tensor.Tensor, mean, std []float32) (tensor.Tensor, error) {
	if len(mean) != tile.Channels || len(std) != tile.Channels {
		return tensor.Tensor{}, fmt.Errorf("%w: mean/std length %d/%d does not match %d channels",
			geometry.ErrInvalidConfig, len(mean), len(std), tile.Channels)
	}

	out := tensor.New(tile.Channels, tile.Height, tile.Width)
	plane := tile.Height * tile.Width
	for c := 0; c < tile.Channels; c++ {
		m, s := mean[c], std[c]
		for i := c * plane; i < (c+1)*plane; i++ {
			out.Data[i] = tile.Data[i]*s + m
		}
	}
	return out, nil
}
