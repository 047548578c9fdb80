// Package segment persists preprocessed tile tensors in a simple segment
// layout: a length-prefixed JSON header describing each tensor (scalar type,
// dim sizes, dim order, offset, size) followed by an aligned little-endian
// payload. Downstream model loaders consume the metadata to map tiles back
// into their runtime tensor types.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/menta2k/image-tiler/pkg/geometry"
	"github.com/menta2k/image-tiler/pkg/preprocess"
	"github.com/menta2k/image-tiler/pkg/tensor"
)

// Version is the current segment layout version.
const Version = 1

// DefaultAlignment is the byte alignment of each tensor in the data segment.
const DefaultAlignment = 16

// ScalarTypeFloat32 is the only scalar type the preprocessor emits.
const ScalarTypeFloat32 = "float32"

// TensorMetadata describes one tensor within the data segment.
type TensorMetadata struct {
	FullyQualifiedName string `json:"fully_qualified_name"`
	ScalarType         string `json:"scalar_type"`
	DimSizes           []int  `json:"dim_sizes"`
	DimOrder           []int  `json:"dim_order"`
	StorageOffset      int    `json:"storage_offset"`
	Offset             int    `json:"offset"`
	Size               int    `json:"size"`
}

// Header is the JSON header preceding the data segment.
type Header struct {
	Version         int                `json:"version"`
	TensorAlignment int                `json:"tensor_alignment"`
	Grid            geometry.GridShape `json:"grid"`
	Tensors         []TensorMetadata   `json:"tensors"`
	DataSize        int                `json:"data_size"`
}

func alignUp(n, alignment int) int {
	return (n + alignment - 1) / alignment * alignment
}

// Write serializes a preprocessing result: a uint32 little-endian header
// length, the JSON header, zero padding up to the tensor alignment, then each
// tile's float32 data at its recorded offset.
func Write(w io.Writer, res *preprocess.Result) error {
	header := Header{
		Version:         Version,
		TensorAlignment: DefaultAlignment,
		Grid:            res.Grid,
	}

	offset := 0
	for i, tile := range res.Tiles {
		size := tile.NumElements() * 4
		header.Tensors = append(header.Tensors, TensorMetadata{
			FullyQualifiedName: fmt.Sprintf("tile_%d", i),
			ScalarType:         ScalarTypeFloat32,
			DimSizes:           []int{tile.Channels, tile.Height, tile.Width},
			DimOrder:           []int{0, 1, 2},
			StorageOffset:      0,
			Offset:             offset,
			Size:               size,
		})
		offset = alignUp(offset+size, DefaultAlignment)
	}
	header.DataSize = offset

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal segment header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header length: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so the data segment starts aligned.
	written := 4 + len(headerJSON)
	if pad := alignUp(written, DefaultAlignment) - written; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write header padding: %w", err)
		}
	}

	cursor := 0
	for i, tile := range res.Tiles {
		meta := header.Tensors[i]
		if pad := meta.Offset - cursor; pad > 0 {
			if _, err := w.Write(make([]byte, pad)); err != nil {
				return fmt.Errorf("failed to write tensor padding: %w", err)
			}
			cursor = meta.Offset
		}
		if err := binary.Write(w, binary.LittleEndian, tile.Data); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", meta.FullyQualifiedName, err)
		}
		cursor += meta.Size
	}
	if pad := header.DataSize - cursor; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write trailing padding: %w", err)
		}
	}
	return nil
}

// Read parses a segment stream written by Write and reconstructs the tiles
// and grid shape.
func Read(r io.Reader) (*preprocess.Result, error) {
	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("failed to read header length: %w", err)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse segment header: %w", err)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported segment version: %d", header.Version)
	}
	if header.TensorAlignment <= 0 {
		return nil, fmt.Errorf("invalid tensor alignment: %d", header.TensorAlignment)
	}

	written := 4 + int(headerLen)
	if pad := alignUp(written, header.TensorAlignment) - written; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return nil, fmt.Errorf("failed to skip header padding: %w", err)
		}
	}

	data := make([]byte, header.DataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read data segment: %w", err)
	}

	res := &preprocess.Result{Grid: header.Grid}
	for _, meta := range header.Tensors {
		if meta.ScalarType != ScalarTypeFloat32 {
			return nil, fmt.Errorf("unsupported scalar type: %s", meta.ScalarType)
		}
		if len(meta.DimSizes) != 3 {
			return nil, fmt.Errorf("tensor %s: expected 3 dims, got %d", meta.FullyQualifiedName, len(meta.DimSizes))
		}
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset+meta.Size > len(data) {
			return nil, fmt.Errorf("tensor %s: extends past data segment", meta.FullyQualifiedName)
		}

		tile := tensor.New(meta.DimSizes[0], meta.DimSizes[1], meta.DimSizes[2])
		if tile.NumElements()*4 != meta.Size {
			return nil, fmt.Errorf("tensor %s: size %d does not match dims %v", meta.FullyQualifiedName, meta.Size, meta.DimSizes)
		}
		for i := range tile.Data {
			bits := binary.LittleEndian.Uint32(data[meta.Offset+i*4:])
			tile.Data[i] = math.Float32frombits(bits)
		}
		res.Tiles = append(res.Tiles, tile)
	}

	if header.Grid.NumTiles() != len(res.Tiles) {
		return nil, fmt.Errorf("grid %s does not match %d tiles", header.Grid, len(res.Tiles))
	}
	return res, nil
}

// WriteFile writes a segment file at path.
func WriteFile(path string, res *preprocess.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create segment file: %w", err)
	}
	defer f.Close()
	return Write(f, res)
}

// ReadFile reads a segment file from path.
func ReadFile(path string) (*preprocess.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
