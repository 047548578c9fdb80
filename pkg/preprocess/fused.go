package preprocess

import (
	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// PreprocessFused runs the single-pass pipeline: the resized image is written
// straight into normalized tiles without materializing the padded canvas.
// Output is numerically identical to Preprocess for the same input and
// configuration.
func PreprocessFused(img tensor.Tensor, cfg Config) (*Result, error) {
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

	resized := tensor.Resize(img, inscribed.Height, inscribed.Width, cfg.Resample, cfg.Antialias)

	grid := geometry.GridShape{
		Rows: canvas.Height / cfg.TileSize,
		Cols: canvas.Width / cfg.TileSize,
	}

	tiles := make([]tensor.Tensor, 0, grid.NumTiles())
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			tile := tensor.New(img.Channels, cfg.TileSize, cfg.TileSize)
			for c := 0; c < img.Channels; c++ {
				m, s := cfg.Mean[c], cfg.Std[c]
				pad := (0 - m) / s
				for y := 0; y < cfg.TileSize; y++ {
					srcY := row*cfg.TileSize + y
					dstOff := tile.Index(c, y, 0)
					if srcY >= resized.Height {
						for x := 0; x < cfg.TileSize; x++ {
							tile.Data[dstOff+x] = pad
						}
						continue
					}
					for x := 0; x < cfg.TileSize; x++ {
						srcX := col*cfg.TileSize + x
						if srcX >= resized.Width {
							tile.Data[dstOff+x] = pad
							continue
						}
						tile.Data[dstOff+x] = (resized.At(c, srcY, srcX) - m) / s
					}
				}
			}
			tiles = append(tiles, tile)
		}
	}

	return &Result{
		Tiles:         tiles,
		Grid:          grid,
		Canvas:        canvas,
		InscribedSize: inscribed,
	}, nil
}
