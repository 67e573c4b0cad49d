// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package field

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Sample is a grid placed over a physical rectangle, with raw samples mapped linearly onto a value range.
// It is immutable once built and safe for concurrent reads.
type Sample struct {
	grid           *Grid
	bounds         r2.Rect
	values         r1.Interval
	pixelsPerMeter float64
}

// NewSample validates the bounds and value range and derives the grid scale.
// Both axes share the smaller scale factor so the field is never distorted.
func NewSample(grid *Grid, bounds r2.Rect, values r1.Interval) (*Sample, error) {
	if grid == nil {
		return nil, errors.Wrap(ErrDecode, "no grid")
	}
	// negated comparisons also reject NaN
	if !(bounds.X.Lo < bounds.X.Hi) {
		return nil, errors.Wrapf(ErrInvalidGeometry, "x1 (%v) must be less than x2 (%v)", bounds.X.Lo, bounds.X.Hi)
	}
	if !(bounds.Y.Lo < bounds.Y.Hi) {
		return nil, errors.Wrapf(ErrInvalidGeometry, "y1 (%v) must be less than y2 (%v)", bounds.Y.Lo, bounds.Y.Hi)
	}
	if !(values.Lo < values.Hi) {
		return nil, errors.Wrapf(ErrInvalidRange, "min value (%v) must be less than max value (%v)", values.Lo, values.Hi)
	}

	xPixelsPerMeter := float64(grid.Width) / bounds.X.Length()
	yPixelsPerMeter := float64(grid.Height) / bounds.Y.Length()
	return &Sample{
		grid:           grid,
		bounds:         bounds,
		values:         values,
		pixelsPerMeter: math.Min(xPixelsPerMeter, yPixelsPerMeter),
	}, nil
}

// Bounds returns the physical rectangle covered by the field.
func (s *Sample) Bounds() r2.Rect { return s.bounds }

// Values returns the physical value range.
func (s *Sample) Values() r1.Interval { return s.values }

// PixelsPerMeter returns the isotropic grid scale.
func (s *Sample) PixelsPerMeter() float64 { return s.pixelsPerMeter }

// Grid returns the underlying grid. It must not be modified.
func (s *Sample) Grid() *Grid { return s.grid }

// Cell maps a physical point to grid indices, nearest cell.
// ok is false when the point lies outside the field.
func (s *Sample) Cell(p r2.Point) (i, j int, ok bool) {
	if !s.bounds.ContainsPoint(p) {
		return 0, 0, false
	}
	i = min(roundHalfUp((p.X-s.bounds.X.Lo)*s.pixelsPerMeter), s.grid.Width-1)
	// row 0 is the top edge, physical y grows upwards
	j = min(roundHalfUp((s.bounds.Y.Hi-p.Y)*s.pixelsPerMeter), s.grid.Height-1)
	if i < 0 || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}

// At returns the rescaled value at a physical point, or false outside the field.
func (s *Sample) At(p r2.Point) (float64, bool) {
	i, j, ok := s.Cell(p)
	if !ok {
		return 0, false
	}
	return s.Rescale(s.grid.At(i, j)), true
}

// Rescale maps a raw sample onto the value range: raw / 2^bitDepth * (max - min) + min.
// The endpoints map exactly onto min and max.
func (s *Sample) Rescale(raw uint32) float64 {
	normalized := float64(raw) / s.grid.FullScale()
	return normalized*s.values.Hi + (1-normalized)*s.values.Lo
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
