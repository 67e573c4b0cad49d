// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package field

import (
	"bytes"
	"image"
	_ "image/png" // register png
	"io"

	_ "github.com/lmittmann/ppm" // register ppm
	"github.com/pkg/errors"
	_ "github.com/spakin/netpbm" // register pbm, pgm, ppm, pam
	_ "golang.org/x/image/bmp"   // register bmp
	_ "golang.org/x/image/tiff"  // register tiff
	_ "golang.org/x/image/webp"  // register webp
)

// MaxCells bounds the number of cells a decoded field may have.
const MaxCells = 1 << 26

// Decode reads an encoded image and converts it into a grid.
// Decoding failures and oversized images are reported as ErrDecode and
// non-grayscale images as ErrUnsupportedFormat.
func Decode(r io.Reader) (*Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "read: %v", err)
	}

	// the header is checked before any raster is allocated
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxCells/cfg.Height {
		return nil, errors.Wrapf(ErrDecode, "%s dimensions %dx%d out of range", format, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	grid, err := GridFromImage(img)
	if err != nil {
		return nil, errors.Wrapf(err, "%s image", format)
	}
	return grid, nil
}
