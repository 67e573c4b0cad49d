// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/relabs-tech/sim_sentuator/internal/agent"
	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/field"
	"github.com/relabs-tech/sim_sentuator/internal/gps"
	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// writeHeatmap writes a 200x200 diagonal gradient PNG and returns its path.
func writeHeatmap(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) / 2)})
		}
	}
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	path := filepath.Join(dir, "heatmap.png")
	test.That(t, os.WriteFile(path, buf.Bytes(), 0o644), test.ShouldBeNil)
	return path
}

func testConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeHeatmap(t, dir)
	cfg, err := config.Parse(strings.NewReader(body), dir)
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

const simConfig = `
SENSOR_NAME=ctd
POLLING_INTERVAL=1000
LOCATION=100,100
QUANTITY=temperature|C|heatmap.png|0|0|200|200|30|40
QUANTITY=salinity|PSU|heatmap.png|0|0|200|200|30|35
`

func TestLoadFields(t *testing.T) {
	cfg := testConfig(t, simConfig)
	fields, err := LoadFields(cfg.Quantities)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fields, test.ShouldHaveLength, 2)
	// both quantities read the same file once
	test.That(t, fields[0].Source.Sample().Grid(), test.ShouldEqual, fields[1].Source.Sample().Grid())

	missing := cfg.Quantities[0]
	missing.Name = "oxygen"
	missing.Path = filepath.Join(t.TempDir(), "missing.png")
	badRange := cfg.Quantities[1]
	badRange.Min, badRange.Max = 5, 5
	_, err = LoadFields([]config.Quantity{missing, badRange})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"oxygen"`)
	test.That(t, errors.Is(err, field.ErrInvalidRange), test.ShouldBeTrue)
}

func TestSimulatorStatic(t *testing.T) {
	cfg := testConfig(t, simConfig)
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))

	var got []sensor.Measurement
	capture := agent.PublisherFunc(func(_ context.Context, m sensor.Measurement) error {
		got = append(got, m)
		return nil
	})

	sim, err := NewSimulator(context.Background(), cfg, mock, zaptest.NewLogger(t).Sugar(), capture)
	test.That(t, err, test.ShouldBeNil)
	defer sim.Close()
	test.That(t, sim.Sensor.Bindings(), test.ShouldHaveLength, 2)

	test.That(t, sim.Runner.Start(), test.ShouldBeNil)
	m, ok := sim.Runner.Poll(context.Background())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, m.Timestamp, test.ShouldEqual, int64(1_700_000_000_000))
	test.That(t, m.Names(), test.ShouldResemble, []string{"temperature", "salinity"})

	temp, _ := m.Get("temperature")
	test.That(t, temp.Value, test.ShouldBeBetweenOrEqual, 30.0, 40.0)
	sal, _ := m.Get("salinity")
	test.That(t, sal.Value, test.ShouldBeBetweenOrEqual, 30.0, 35.0)
}

func TestSimulatorOrbitAndRecorder(t *testing.T) {
	cfg := testConfig(t, simConfig+`
LOCATION_SOURCE=orbit
ORBIT_CENTER=100,100
ORBIT_RADIUS=150
ORBIT_PERIOD=4000
`)
	cfg.RecorderDBPath = filepath.Join(t.TempDir(), "history.db")
	mock := clock.NewMock()

	sim, err := NewSimulator(context.Background(), cfg, mock, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sim.Runner.Start(), test.ShouldBeNil)

	// starts at (250,100): east of the field
	m, _ := sim.Runner.Poll(context.Background())
	test.That(t, m.Location[0], test.ShouldAlmostEqual, 250.0)
	test.That(t, m.Len(), test.ShouldEqual, 0)

	// half a turn later it is at (-50,100): still off the field
	mock.Add(2 * time.Second)
	m, _ = sim.Runner.Poll(context.Background())
	test.That(t, m.Location[0], test.ShouldAlmostEqual, -50.0)
	test.That(t, m.Len(), test.ShouldEqual, 0)
	test.That(t, sim.Close(), test.ShouldBeNil)

	var out bytes.Buffer
	test.That(t, RunHistory(context.Background(), &out, cfg.RecorderDBPath, 10), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldContainSubstring, "@(-50.00, 100.00)")
	test.That(t, lines[0], test.ShouldContainSubstring, "no data")
}

// pipePort is a serial port fed from a pipe.
type pipePort struct {
	io.Reader
	closer io.Closer
}

func (p pipePort) Write(b []byte) (int, error) { return len(b), nil }
func (p pipePort) Close() error                { return p.closer.Close() }

func TestSimulatorGPS(t *testing.T) {
	cfg := testConfig(t, simConfig+`
LOCATION_SOURCE=gps
GPS_SERIAL_PORT=/dev/fake
GPS_ORIGIN=48.1173,11.5166667
`)
	pr, pw := io.Pipe()
	orig := openSerial
	openSerial = func(name string, baud int) (io.ReadWriteCloser, error) {
		test.That(t, name, test.ShouldEqual, "/dev/fake")
		test.That(t, baud, test.ShouldEqual, 9600)
		return pipePort{Reader: pr, closer: pr}, nil
	}
	t.Cleanup(func() { openSerial = orig })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loc, closeLoc, err := NewLocationProvider(ctx, cfg, clock.NewMock(), zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	defer closeLoc()
	_, ok := loc.Location()
	test.That(t, ok, test.ShouldBeFalse)

	_, err = io.WriteString(pw, "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n")
	test.That(t, err, test.ShouldBeNil)

	tracker := loc.(*gps.Tracker)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := tracker.Fix(); ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	coords, ok := loc.Location()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, coords[0], test.ShouldAlmostEqual, 0.0, 1)
	test.That(t, coords[1], test.ShouldAlmostEqual, 0.0, 1)
}

// trackedPort records whether it was closed.
type trackedPort struct {
	pipePort
	closed chan struct{}
	once   *sync.Once
}

func (p trackedPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return p.pipePort.Close()
}

func TestSimulatorReleasesGPSPort(t *testing.T) {
	cfg := testConfig(t, simConfig+`
LOCATION_SOURCE=gps
GPS_SERIAL_PORT=/dev/fake
`)
	blocker := filepath.Join(t.TempDir(), "blocker")
	test.That(t, os.WriteFile(blocker, []byte("not a directory"), 0o600), test.ShouldBeNil)
	cfg.RecorderDBPath = filepath.Join(blocker, "recorder.db")

	var ports []trackedPort
	orig := openSerial
	openSerial = func(string, int) (io.ReadWriteCloser, error) {
		pr, _ := io.Pipe()
		p := trackedPort{pipePort: pipePort{Reader: pr, closer: pr}, closed: make(chan struct{}), once: &sync.Once{}}
		ports = append(ports, p)
		return p, nil
	}
	t.Cleanup(func() { openSerial = orig })

	// the context stays alive, so only the failed construction can release the port
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := NewSimulator(ctx, cfg, clock.NewMock(), zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, ports, test.ShouldHaveLength, 1)
	select {
	case <-ports[0].closed:
	case <-time.After(5 * time.Second):
		t.Fatal("GPS port left open after failed construction")
	}

	cfg.RecorderDBPath = ""
	sim, err := NewSimulator(ctx, cfg, clock.NewMock(), zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ports, test.ShouldHaveLength, 2)
	test.That(t, sim.Close(), test.ShouldBeNil)
	select {
	case <-ports[1].closed:
	case <-time.After(5 * time.Second):
		t.Fatal("GPS port left open after Close")
	}
	test.That(t, sim.Close(), test.ShouldBeNil)
}

func TestProbe(t *testing.T) {
	cfg := testConfig(t, simConfig)
	q, _ := cfg.Quantity("temperature")

	v, ok, err := Probe(q, []float64{100, 100})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldBeBetweenOrEqual, 30.0, 40.0)

	var out bytes.Buffer
	test.That(t, RunProbe(&out, q, []float64{100, 300}), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, "temperature: no data\n")

	out.Reset()
	test.That(t, RunProbe(&out, q, []float64{0, 200}), test.ShouldBeNil)
	// top-left cell is black: exactly the minimum
	test.That(t, out.String(), test.ShouldEqual, "temperature = 30 C\n")

	_, _, err = Probe(q, []float64{1})
	test.That(t, errors.Is(err, field.ErrInvalidInput), test.ShouldBeTrue)
}

func TestFormatMeasurement(t *testing.T) {
	m := sensor.NewMeasurement("ctd", 1_700_000_000_000)
	test.That(t, FormatMeasurement(m), test.ShouldEqual,
		"[ctd] 2023-11-14T22:13:20.000Z  location unknown  no data")

	m.Location = []float64{100, 100.5}
	m.Set("temperature", 34.25, "C")
	m.Set("index", 2, "")
	test.That(t, FormatMeasurement(m), test.ShouldEqual,
		"[ctd] 2023-11-14T22:13:20.000Z  @(100.00, 100.50)  temperature=34.250 C  index=2.000")

	var out bytes.Buffer
	test.That(t, printMeasurement(&out, []byte(`{"sensor_type":"ctd","timestamp":0,"quantities":[]}`)), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "[ctd] 1970-01-01T00:00:00.000Z")
	test.That(t, printMeasurement(&out, []byte(`{`)), test.ShouldNotBeNil)
}

func TestRunHistoryEmpty(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "empty.db")
	test.That(t, RunHistory(context.Background(), &out, path, 5), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, "no measurements recorded\n")
}

// lineWriter sends every write to a channel.
type lineWriter chan string

func (w lineWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func TestRunMockConsole(t *testing.T) {
	cfg := testConfig(t, simConfig+"POLLING_INTERVAL=10\nAUTO_ENABLE=false\nMQTT_BROKER=tcp://unreachable:1883\n")
	lines := make(lineWriter, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunMockConsole(ctx, cfg, lines, zaptest.NewLogger(t).Sugar()) }()

	select {
	case line := <-lines:
		test.That(t, line, test.ShouldStartWith, "[ctd] ")
		test.That(t, line, test.ShouldContainSubstring, "@(100.00, 100.00)")
		test.That(t, line, test.ShouldContainSubstring, "temperature=")
	case <-time.After(5 * time.Second):
		t.Fatal("no measurement printed")
	}

	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not stop")
	}
}

func TestSampleConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join("..", "..", "sim_config.txt"))
	test.That(t, err, test.ShouldBeNil)
	fields, err := LoadFields(cfg.Quantities)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fields, test.ShouldHaveLength, 2)

	// 16-bit plume peaks at the centre
	salinity := fields[1].Source
	test.That(t, salinity.Sample().Grid().BitDepth, test.ShouldEqual, 16)
	centre, ok, err := salinity.Value([]float64{100, 100}, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	edge, _, _ := salinity.Value([]float64{0, 0}, 0)
	test.That(t, centre, test.ShouldBeGreaterThan, edge)
	test.That(t, centre, test.ShouldBeBetweenOrEqual, 30.0, 36.0)
}
