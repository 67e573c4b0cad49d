// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package field

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/spakin/netpbm/npcolor"
)

// Grid is a decoded field: Width x Height cells of unsigned samples, stored row-major.
// Row 0 is the top (northern) edge of the field.
type Grid struct {
	Width    int
	Height   int
	BitDepth int // bits per sample
	Channels int // components per cell, only the first one is sampled
	Cells    []uint32
}

// NewGrid validates the dimensions against the cell slice and returns a grid.
func NewGrid(width, height, bitDepth, channels int, cells []uint32) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrDecode, "grid must not be empty, got %dx%d", width, height)
	}
	if bitDepth < 1 || bitDepth > 32 {
		return nil, errors.Wrapf(ErrDecode, "bit depth must be 1-32, got %d", bitDepth)
	}
	if channels < 1 {
		return nil, errors.Wrapf(ErrDecode, "grid needs at least one channel, got %d", channels)
	}
	if len(cells) != width*height*channels {
		return nil, errors.Wrapf(ErrDecode, "grid %dx%dx%d needs %d cells, got %d",
			width, height, channels, width*height*channels, len(cells))
	}
	return &Grid{
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Channels: channels,
		Cells:    cells,
	}, nil
}

// At returns the first channel of cell (i, j). Callers keep i and j in range.
func (g *Grid) At(i, j int) uint32 {
	return g.Cells[(j*g.Width+i)*g.Channels]
}

// FullScale is the normalization divisor for raw samples, 2^BitDepth.
func (g *Grid) FullScale() float64 {
	return float64(uint64(1) << uint(g.BitDepth))
}

// GridFromImage converts a decoded grayscale image into a grid.
// Netpbm graymaps keep their raw samples; a sample above the maxval is ErrDecode.
// Anything that is not 8-bit or 16-bit gray is rejected with ErrUnsupportedFormat.
func GridFromImage(img image.Image) (*Grid, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cells := make([]uint32, 0, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < w; x++ {
				cells = append(cells, uint32(row[x]))
			}
		}
		return NewGrid(w, h, 8, 1, cells)
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				cells = append(cells, uint32(src.Gray16At(x, y).Y))
			}
		}
		return NewGrid(w, h, 16, 1, cells)
	}

	if grid, ok, err := graymapGrid(img); ok {
		return grid, err
	}

	switch img.ColorModel() {
	case color.GrayModel:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				cells = append(cells, uint32(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y))
			}
		}
		return NewGrid(w, h, 8, 1, cells)
	case color.Gray16Model:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				cells = append(cells, uint32(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y))
			}
		}
		return NewGrid(w, h, 16, 1, cells)
	}

	return nil, errors.Wrapf(ErrUnsupportedFormat, "got %T", img)
}

// graymapGrid converts netpbm graymaps, whose colors carry the maxval.
// It reports false for any other image.
func graymapGrid(img image.Image) (*Grid, bool, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, false, nil
	}

	var depth int
	switch img.At(b.Min.X, b.Min.Y).(type) {
	case npcolor.GrayM:
		depth = 8
	case npcolor.GrayM32:
		depth = 16
	default:
		return nil, false, nil
	}

	cells := make([]uint32, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v, maxval uint32
			switch c := img.At(x, y).(type) {
			case npcolor.GrayM:
				v, maxval = uint32(c.Y), uint32(c.M)
			case npcolor.GrayM32:
				v, maxval = uint32(c.Y), uint32(c.M)
			default:
				return nil, true, errors.Wrapf(ErrDecode, "graymap sample (%d,%d) is %T", x, y, c)
			}
			if v > maxval {
				return nil, true, errors.Wrapf(ErrDecode, "graymap sample (%d,%d) = %d exceeds maxval %d", x, y, v, maxval)
			}
			cells = append(cells, v)
		}
	}
	grid, err := NewGrid(b.Dx(), b.Dy(), depth, 1, cells)
	return grid, true, err
}
