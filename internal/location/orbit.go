// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
)

// Orbit is a mock moving platform circling a centre point counter-clockwise at constant
// speed, starting due east of the centre.
type Orbit struct {
	center r2.Point
	radius float64
	period time.Duration
	clock  clock.Clock
	start  time.Time
}

// NewOrbit returns a platform that completes one circle every period. A nil clock
// uses the wall clock; a non-positive period keeps the platform parked at its start.
func NewOrbit(center r2.Point, radius float64, period time.Duration, clk clock.Clock) *Orbit {
	if clk == nil {
		clk = clock.New()
	}
	return &Orbit{
		center: center,
		radius: radius,
		period: period,
		clock:  clk,
		start:  clk.Now(),
	}
}

// Position returns the platform position at the current clock time.
func (o *Orbit) Position() r2.Point {
	angle := 0.0
	if o.period > 0 {
		elapsed := o.clock.Since(o.start)
		angle = 2 * math.Pi * float64(elapsed%o.period) / float64(o.period)
	}
	return o.center.Add(r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}.Mul(o.radius))
}

// Location always knows where the platform is.
func (o *Orbit) Location() ([]float64, bool) {
	p := o.Position()
	return []float64{p.X, p.Y}, true
}
