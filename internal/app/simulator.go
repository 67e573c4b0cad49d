// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/agent"
	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/field"
	"github.com/relabs-tech/sim_sentuator/internal/gps"
	"github.com/relabs-tech/sim_sentuator/internal/location"
	"github.com/relabs-tech/sim_sentuator/internal/publish"
	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// FieldSource is a configured quantity with its field loaded.
type FieldSource struct {
	Quantity config.Quantity
	Source   *field.ImageSource
}

// LoadFields decodes the field image of every quantity. Quantities sharing a file
// share its grid. Every failing quantity is reported.
func LoadFields(quantities []config.Quantity) ([]FieldSource, error) {
	grids := make(map[string]*field.Grid)
	out := make([]FieldSource, 0, len(quantities))
	var errs error

	for _, q := range quantities {
		grid, ok := grids[q.Path]
		if !ok {
			g, err := decodeFile(q.Path)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "quantity %q", q.Name))
				continue
			}
			grids[q.Path] = g
			grid = g
		}

		src, err := field.NewImageSource(grid, q.X1, q.Y1, q.X2, q.Y2, q.Min, q.Max)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "quantity %q", q.Name))
			continue
		}
		out = append(out, FieldSource{Quantity: q, Source: src})
	}

	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func decodeFile(path string) (*field.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open field")
	}
	defer f.Close()
	return field.Decode(f)
}

// openSerial opens the GPS receiver port.
var openSerial = func(name string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
}

// NewLocationProvider builds the platform the configuration asks for. A GPS
// platform reads its serial port until ctx is done or the returned closer runs.
func NewLocationProvider(
	ctx context.Context,
	cfg *config.Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
) (sensor.LocationProvider, func() error, error) {
	noop := func() error { return nil }

	switch cfg.LocationSource {
	case config.LocationOrbit:
		center := r2.Point{X: cfg.OrbitCenter[0], Y: cfg.OrbitCenter[1]}
		return location.NewOrbit(center, cfg.OrbitRadius, cfg.OrbitDuration(), clk), noop, nil

	case config.LocationGPS:
		port, err := openSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open GPS serial port %s", cfg.GPSSerialPort)
		}
		logger.Infow("GPS serial port opened", "port", cfg.GPSSerialPort, "baud", cfg.GPSBaudRate)

		released := make(chan struct{})
		closePort := sync.OnceValue(func() error {
			close(released)
			return port.Close()
		})
		go func() {
			select {
			case <-ctx.Done():
				_ = closePort()
			case <-released:
			}
		}()

		tracker := gps.NewTracker(cfg.GPSOrigin[0], cfg.GPSOrigin[1], logger.Named("gps"))
		go func() {
			if err := tracker.Run(ctx, port); err != nil && ctx.Err() == nil {
				select {
				case <-released:
				default:
					logger.Warnw("GPS stream ended", "error", err)
				}
			}
		}()
		return tracker, closePort, nil

	case config.LocationStatic:
		return location.NewStatic(cfg.Location...), noop, nil
	}
	return nil, nil, errors.Errorf("unknown location source %q", cfg.LocationSource)
}

// Simulator is a configured sensor with the runner hosting it.
type Simulator struct {
	Sensor *sensor.SimpleSensor
	Runner *agent.Runner
	Fields []FieldSource

	closers []func() error
}

// NewSimulator loads the fields, builds the location provider and publishers, and
// registers every configured quantity on a new sensor. Measurements always go to the
// log; MQTT and the SQLite recorder are used when configured.
func NewSimulator(
	ctx context.Context,
	cfg *config.Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
	extra ...agent.Publisher,
) (*Simulator, error) {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fields, err := LoadFields(cfg.Quantities)
	if err != nil {
		return nil, err
	}

	loc, closeLoc, err := NewLocationProvider(ctx, cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	sim := &Simulator{Fields: fields, closers: []func() error{closeLoc}}
	sim.Sensor = sensor.NewSimpleSensor(cfg.SensorName, cfg.PollingDuration(), cfg.AutoEnable, loc, logger)
	for _, f := range fields {
		if err := sim.Sensor.Register(f.Quantity.Name, f.Quantity.Units, f.Source); err != nil {
			sim.Close()
			return nil, err
		}
	}

	publishers := []agent.Publisher{publish.NewLog(logger.Named("measurement"))}

	if cfg.MQTTBroker != "" {
		client, err := publish.Connect(cfg.MQTTBroker, cfg.MQTTClientIDSimulator)
		if err != nil {
			sim.Close()
			return nil, err
		}
		logger.Infow("connected to MQTT broker", "broker", cfg.MQTTBroker, "topic", cfg.TopicMeasurement)
		publishers = append(publishers, publish.NewMQTT(client, cfg.TopicMeasurement))
		sim.closers = append(sim.closers, func() error {
			client.Disconnect(250)
			return nil
		})
	}

	if cfg.RecorderDBPath != "" {
		rec := publish.NewSQLiteRecorder(cfg.RecorderDBPath)
		if err := rec.Init(ctx); err != nil {
			sim.Close()
			return nil, err
		}
		logger.Infow("recording measurements", "db", cfg.RecorderDBPath)
		publishers = append(publishers, rec)
		sim.closers = append(sim.closers, rec.Close)
	}

	publishers = append(publishers, extra...)
	sim.Runner = agent.NewRunner(sim.Sensor, clk, logger, publishers...)
	return sim, nil
}

// Close releases the publishers and the location provider.
func (s *Simulator) Close() error {
	var errs error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.closers[i]())
	}
	s.closers = nil
	return errs
}

// RunSimulator polls the configured sensor until ctx is done.
func RunSimulator(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	sim, err := NewSimulator(ctx, cfg, clock.New(), logger)
	if err != nil {
		return err
	}
	defer sim.Close()

	logger.Infow("simulator starting",
		"sensor", cfg.SensorName,
		"quantities", len(sim.Fields),
		"location_source", cfg.LocationSource,
	)
	err = sim.Runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("simulator shutting down")
		return nil
	}
	return err
}
