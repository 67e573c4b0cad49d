// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/relabs-tech/sim_sentuator/internal/field"
)

type fakeHost struct {
	interval time.Duration
	enabled  bool
	now      int64
}

func (h *fakeHost) SetPollingInterval(d time.Duration) { h.interval = d }
func (h *fakeHost) SetEnable(enable bool)              { h.enabled = enable }
func (h *fakeHost) CurrentTimeMillis() int64           { return h.now }

// movable is a location provider the test can move around.
type movable struct {
	coords []float64
}

func (m *movable) Location() ([]float64, bool) {
	return m.coords, m.coords != nil
}

func constant(v float64) field.Source {
	return field.SourceFunc(func([]float64, int64) (float64, bool, error) { return v, true, nil })
}

func heatmapSource(t *testing.T, lo, hi float64) *field.ImageSource {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) / 2)})
		}
	}
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	src, err := field.NewImageSourceFromReader(&buf, 0, 0, 200, 200, lo, hi)
	test.That(t, err, test.ShouldBeNil)
	return src
}

func TestSimpleSensorLifecycle(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	host := &fakeHost{}

	s := NewSimpleSensor("test", time.Second, true, nil, logger)
	test.That(t, s.State(), test.ShouldEqual, StateNew)

	test.That(t, s.Setup(host), test.ShouldBeNil)
	test.That(t, host.interval, test.ShouldEqual, time.Second)
	test.That(t, s.State(), test.ShouldEqual, StateConfigured)
	test.That(t, host.enabled, test.ShouldBeFalse)

	test.That(t, s.Startup(host), test.ShouldBeNil)
	test.That(t, host.enabled, test.ShouldBeTrue)
	test.That(t, s.State(), test.ShouldEqual, StateRunning)
	test.That(t, s.State().String(), test.ShouldEqual, "running")

	manual := &fakeHost{}
	s = NewSimpleSensor("manual", 250*time.Millisecond, false, nil, logger)
	test.That(t, s.Setup(manual), test.ShouldBeNil)
	test.That(t, s.Startup(manual), test.ShouldBeNil)
	test.That(t, manual.enabled, test.ShouldBeFalse)
	test.That(t, manual.interval, test.ShouldEqual, 250*time.Millisecond)

	s = NewSimpleSensor("broken", 0, true, nil, logger)
	test.That(t, s.Setup(&fakeHost{}), test.ShouldNotBeNil)
}

func TestSimpleSensorMeasureHeatmap(t *testing.T) {
	loc := &movable{coords: []float64{100, 100}}
	s := NewSimpleSensor("test", time.Second, true, loc, zaptest.NewLogger(t).Sugar())
	test.That(t, s.Register("temperature", "C", heatmapSource(t, 30, 40)), test.ShouldBeNil)

	host := &fakeHost{now: 1_700_000_000_000}
	m := s.Measure(host)
	test.That(t, m.SensorType, test.ShouldEqual, "test")
	test.That(t, m.Timestamp, test.ShouldEqual, host.now)
	test.That(t, m.Location, test.ShouldResemble, []float64{100, 100})
	q, ok := m.Get("temperature")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, q.Units, test.ShouldEqual, "C")
	test.That(t, q.Value, test.ShouldBeBetweenOrEqual, 30.0, 40.0)

	// off the field: the quantity is missing, not zero
	loc.coords = []float64{100, 300}
	m = s.Measure(host)
	test.That(t, m.Len(), test.ShouldEqual, 0)
	test.That(t, m.Location, test.ShouldResemble, []float64{100, 300})
}

func TestSimpleSensorUnknownLocation(t *testing.T) {
	loc := &movable{}
	s := NewSimpleSensor("ctd", time.Second, true, loc, zaptest.NewLogger(t).Sugar())
	test.That(t, s.Register("temperature", "C", constant(1)), test.ShouldBeNil)

	m := s.Measure(&fakeHost{})
	test.That(t, m.SensorType, test.ShouldEqual, "ctd")
	test.That(t, m.Len(), test.ShouldEqual, 0)
	test.That(t, m.Location, test.ShouldBeNil)

	loc.coords = []float64{5}
	m = s.Measure(&fakeHost{})
	test.That(t, m.SensorType, test.ShouldEqual, "ctd")
	test.That(t, m.Len(), test.ShouldEqual, 0)

	s = NewSimpleSensor("nowhere", time.Second, true, nil, nil)
	test.That(t, s.Register("temperature", "C", constant(1)), test.ShouldBeNil)
	m = s.Measure(&fakeHost{})
	test.That(t, m.SensorType, test.ShouldEqual, "nowhere")
	test.That(t, m.Len(), test.ShouldEqual, 0)
}

func TestSimpleSensorAssemblesInOrder(t *testing.T) {
	loc := LocationFunc(func() ([]float64, bool) { return []float64{1, 2, 3}, true })
	s := NewSimpleSensor("ctd", time.Second, true, loc, zaptest.NewLogger(t).Sugar())

	names := []string{"temperature", "salinity", "depth", "oxygen", "chlorophyll"}
	for i, name := range names {
		test.That(t, s.Register(name, "u"+name, constant(float64(i))), test.ShouldBeNil)
	}

	m := s.Measure(&fakeHost{})
	test.That(t, m.Len(), test.ShouldEqual, len(names))
	test.That(t, m.Names(), test.ShouldResemble, names)
	for i, q := range m.Quantities {
		test.That(t, q.Value, test.ShouldEqual, float64(i))
		test.That(t, q.Units, test.ShouldEqual, "u"+names[i])
	}
}

func TestSimpleSensorPartialReadings(t *testing.T) {
	loc := LocationFunc(func() ([]float64, bool) { return []float64{1, 2}, true })
	s := NewSimpleSensor("ctd", time.Second, true, loc, zaptest.NewLogger(t).Sugar())

	absent := field.SourceFunc(func([]float64, int64) (float64, bool, error) { return 0, false, nil })
	failing := field.SourceFunc(func([]float64, int64) (float64, bool, error) {
		return 0, false, errors.New("sensor fell off")
	})
	test.That(t, s.Register("temperature", "C", constant(21.5)), test.ShouldBeNil)
	test.That(t, s.Register("salinity", "PSU", absent), test.ShouldBeNil)
	test.That(t, s.Register("oxygen", "", failing), test.ShouldBeNil)
	test.That(t, s.Register("zero", "", constant(0)), test.ShouldBeNil)

	m := s.Measure(&fakeHost{})
	test.That(t, m.Names(), test.ShouldResemble, []string{"temperature", "zero"})
	q, ok := m.Get("zero")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, q.Value, test.ShouldEqual, 0.0)
	_, ok = m.Get("salinity")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSimpleSensorDuplicateNames(t *testing.T) {
	loc := LocationFunc(func() ([]float64, bool) { return []float64{1, 2}, true })
	s := NewSimpleSensor("ctd", time.Second, true, loc, zaptest.NewLogger(t).Sugar())

	calls := 0
	counting := func(v float64) field.Source {
		return field.SourceFunc(func([]float64, int64) (float64, bool, error) {
			calls++
			return v, true, nil
		})
	}
	test.That(t, s.Register("temperature", "C", counting(1)), test.ShouldBeNil)
	test.That(t, s.Register("depth", "m", counting(2)), test.ShouldBeNil)
	test.That(t, s.Register("temperature", "K", counting(3)), test.ShouldBeNil)
	test.That(t, len(s.Bindings()), test.ShouldEqual, 3)

	m := s.Measure(&fakeHost{})
	test.That(t, calls, test.ShouldEqual, 3)
	test.That(t, m.Names(), test.ShouldResemble, []string{"temperature", "depth"})
	q, _ := m.Get("temperature")
	test.That(t, q.Value, test.ShouldEqual, 3.0)
	test.That(t, q.Units, test.ShouldEqual, "K")
}

func TestSimpleSensorPassesPollTime(t *testing.T) {
	loc := LocationFunc(func() ([]float64, bool) { return []float64{7, 8, 9}, true })
	s := NewSimpleSensor("ctd", time.Second, true, loc, nil)

	var gotCoords []float64
	var gotTime int64
	test.That(t, s.Register("probe", "", field.SourceFunc(func(c []float64, ts int64) (float64, bool, error) {
		gotCoords, gotTime = c, ts
		return 0, true, nil
	})), test.ShouldBeNil)

	s.Measure(&fakeHost{now: 42})
	test.That(t, gotCoords, test.ShouldResemble, []float64{7, 8, 9})
	test.That(t, gotTime, test.ShouldEqual, int64(42))
}

func TestRegistry(t *testing.T) {
	var r Registry
	test.That(t, r.Register("", "C", constant(1)), test.ShouldNotBeNil)
	test.That(t, r.Register("temperature", "C", nil), test.ShouldNotBeNil)
	test.That(t, r.Len(), test.ShouldEqual, 0)

	test.That(t, r.Register("temperature", "", constant(1)), test.ShouldBeNil)
	bindings := r.Bindings()
	bindings[0].Name = "mutated"
	test.That(t, r.Bindings()[0].Name, test.ShouldEqual, "temperature")
	test.That(t, r.Bindings()[0].Units, test.ShouldEqual, "")
}
