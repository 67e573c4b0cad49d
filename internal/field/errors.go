// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package field

import "github.com/pkg/errors"

// Construction errors are fatal: a source that fails with one of them is never returned.
// Use errors.Is to match them; the returned errors carry additional context.
var (
	// ErrInvalidGeometry is returned when the physical bounds are empty or inverted.
	ErrInvalidGeometry = errors.New("invalid field geometry")
	// ErrInvalidRange is returned when the value range is empty or inverted.
	ErrInvalidRange = errors.New("invalid field value range")
	// ErrDecode is returned when field data cannot be turned into a grid.
	ErrDecode = errors.New("field data could not be decoded")
	// ErrUnsupportedFormat is returned when the decoded field is not single-channel grayscale.
	ErrUnsupportedFormat = errors.New("field must be grayscale")
	// ErrInvalidInput is returned by Value when fewer than two coordinates are supplied.
	ErrInvalidInput = errors.New("invalid coordinates")
)
