// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/sim_sentuator/internal/field"
)

var (
	markerColor = color.RGBA{R: 255, A: 255}
	labelColor  = color.RGBA{R: 255, G: 255, A: 255}
)

const markerArm = 4

// RenderField draws the field as an 8-bit grayscale picture, marks the cell under
// location when it lies on the field, and writes label in the top-left corner.
func RenderField(sample *field.Sample, location []float64, label string) *image.RGBA {
	g := sample.Grid()
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))

	scale := 256 / g.FullScale()
	for j := 0; j < g.Height; j++ {
		for i := 0; i < g.Width; i++ {
			shade := float64(g.At(i, j)) * scale
			if shade > 255 {
				shade = 255
			}
			y := uint8(shade)
			img.SetRGBA(i, j, color.RGBA{R: y, G: y, B: y, A: 255})
		}
	}

	if len(location) >= 2 {
		if ci, cj, ok := sample.Cell(r2.Point{X: location[0], Y: location[1]}); ok {
			for d := -markerArm; d <= markerArm; d++ {
				// SetRGBA ignores points outside the picture
				img.SetRGBA(ci+d, cj, markerColor)
				img.SetRGBA(ci, cj+d, markerColor)
			}
		}
	}

	if label != "" {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(labelColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(2, 13),
		}
		drawer.DrawString(label)
	}
	return img
}
