// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package location

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestStatic(t *testing.T) {
	s := NewStatic()
	_, ok := s.Location()
	test.That(t, ok, test.ShouldBeFalse)

	s.Set(100, 100)
	coords, ok := s.Location()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, coords, test.ShouldResemble, []float64{100, 100})

	coords[0] = -1
	coords, _ = s.Location()
	test.That(t, coords[0], test.ShouldEqual, 100.0)

	s.Clear()
	_, ok = s.Location()
	test.That(t, ok, test.ShouldBeFalse)

	coords, ok = NewStatic(1, 2, 3).Location()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, coords, test.ShouldHaveLength, 3)
}

func TestOrbit(t *testing.T) {
	mock := clock.NewMock()
	o := NewOrbit(r2.Point{X: 100, Y: 100}, 50, time.Minute, mock)

	coords, ok := o.Location()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, coords[0], test.ShouldAlmostEqual, 150.0)
	test.That(t, coords[1], test.ShouldAlmostEqual, 100.0)

	mock.Add(15 * time.Second)
	p := o.Position()
	test.That(t, p.X, test.ShouldAlmostEqual, 100.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 150.0)

	mock.Add(15 * time.Second)
	p = o.Position()
	test.That(t, p.X, test.ShouldAlmostEqual, 50.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 100.0)

	// a full period later the platform is back where it was
	mock.Add(time.Minute)
	q := o.Position()
	test.That(t, q.X, test.ShouldAlmostEqual, p.X)
	test.That(t, q.Y, test.ShouldAlmostEqual, p.Y)

	parked := NewOrbit(r2.Point{}, 5, 0, mock)
	mock.Add(time.Hour)
	p = parked.Position()
	test.That(t, p.X, test.ShouldAlmostEqual, 5.0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0.0)
}
