// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package field

import (
	"io"
	"io/fs"
	"os"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Source samples a scalar field. Coordinates are right-handed; timestamps are
// milliseconds since the Unix epoch.
//
// ok is false when the field has no value at coords. That is an expected outcome, not an error.
type Source interface {
	Value(coords []float64, timestamp int64) (value float64, ok bool, err error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(coords []float64, timestamp int64) (float64, bool, error)

// Value calls f.
func (f SourceFunc) Value(coords []float64, timestamp int64) (float64, bool, error) {
	return f(coords, timestamp)
}

// ImageSource is a static 2D field backed by a grayscale image.
type ImageSource struct {
	sample *Sample
}

var _ Source = (*ImageSource)(nil)

// NewImageSource places grid over the rectangle (x1, y1)-(x2, y2), where (x1, y1) is the
// bottom left corner, and maps raw samples onto [minValue, maxValue].
func NewImageSource(grid *Grid, x1, y1, x2, y2, minValue, maxValue float64) (*ImageSource, error) {
	sample, err := NewSample(grid,
		r2.Rect{X: r1.Interval{Lo: x1, Hi: x2}, Y: r1.Interval{Lo: y1, Hi: y2}},
		r1.Interval{Lo: minValue, Hi: maxValue},
	)
	if err != nil {
		return nil, err
	}
	return &ImageSource{sample: sample}, nil
}

// NewImageSourceFromReader decodes an image from r and places it like NewImageSource.
func NewImageSourceFromReader(r io.Reader, x1, y1, x2, y2, minValue, maxValue float64) (*ImageSource, error) {
	grid, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return NewImageSource(grid, x1, y1, x2, y2, minValue, maxValue)
}

// NewImageSourceFromFile decodes the image file at path.
func NewImageSourceFromFile(path string, x1, y1, x2, y2, minValue, maxValue float64) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open field image")
	}
	defer f.Close()
	return NewImageSourceFromReader(f, x1, y1, x2, y2, minValue, maxValue)
}

// NewImageSourceFromFS decodes the image called name in fsys, typically an embed.FS.
// A missing entry yields an error matching fs.ErrNotExist.
func NewImageSourceFromFS(fsys fs.FS, name string, x1, y1, x2, y2, minValue, maxValue float64) (*ImageSource, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "field resource %q", name)
	}
	defer f.Close()
	return NewImageSourceFromReader(f, x1, y1, x2, y2, minValue, maxValue)
}

// Sample returns the placed field backing the source.
func (s *ImageSource) Sample() *Sample { return s.sample }

// Value returns the field value at the first two coordinates. Further components are ignored,
// and so is the timestamp since the field is static.
func (s *ImageSource) Value(coords []float64, _ int64) (float64, bool, error) {
	if len(coords) < 2 {
		return 0, false, errors.Wrapf(ErrInvalidInput, "need at least 2 components, got %d", len(coords))
	}
	v, ok := s.sample.At(r2.Point{X: coords[0], Y: coords[1]})
	return v, ok, nil
}
