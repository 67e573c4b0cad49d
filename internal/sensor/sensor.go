// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensor implements simulated polling sensors: quantities are bound to field
// sources and sampled at the sensor's current location on every poll.
package sensor

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/field"
)

// Host is the agent framework hosting a sensor. It owns the enable flag, the polling
// timer and the clock.
type Host interface {
	SetPollingInterval(d time.Duration)
	SetEnable(enable bool)
	CurrentTimeMillis() int64
}

// LocationProvider reports where the sensor currently is. ok is false while the
// location is unknown.
type LocationProvider interface {
	Location() (coords []float64, ok bool)
}

// LocationFunc adapts a function to a LocationProvider.
type LocationFunc func() ([]float64, bool)

// Location calls f.
func (f LocationFunc) Location() ([]float64, bool) { return f() }

// State is the lifecycle state of a SimpleSensor.
type State int

const (
	// StateNew is a sensor that has not been set up.
	StateNew State = iota
	// StateConfigured is a sensor whose polling interval has been set.
	StateConfigured
	// StateRunning is a started sensor. Stopping belongs to the host.
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	}
	return "unknown"
}

// SimpleSensor samples every registered quantity at the location reported by its
// location provider.
type SimpleSensor struct {
	name            string
	pollingInterval time.Duration
	autoEnable      bool
	location        LocationProvider
	registry        Registry
	logger          *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

// NewSimpleSensor returns a sensor called name. A nil location provider means the
// location is never known; a nil logger discards logs.
func NewSimpleSensor(
	name string,
	pollingInterval time.Duration,
	autoEnable bool,
	location LocationProvider,
	logger *zap.SugaredLogger,
) *SimpleSensor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SimpleSensor{
		name:            name,
		pollingInterval: pollingInterval,
		autoEnable:      autoEnable,
		location:        location,
		logger:          logger.With("sensor", name),
	}
}

// Name returns the sensor type reported in measurements.
func (s *SimpleSensor) Name() string { return s.name }

// PollingInterval returns the configured interval between polls.
func (s *SimpleSensor) PollingInterval() time.Duration { return s.pollingInterval }

// State returns the lifecycle state.
func (s *SimpleSensor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Register binds a quantity to a source. Call it before polling starts.
func (s *SimpleSensor) Register(name, units string, source field.Source) error {
	return s.registry.Register(name, units, source)
}

// Bindings returns the registered bindings in order.
func (s *SimpleSensor) Bindings() []Binding { return s.registry.Bindings() }

// Setup hands the polling interval to the host.
func (s *SimpleSensor) Setup(host Host) error {
	if s.pollingInterval <= 0 {
		return errors.Errorf("sensor %q: polling interval must be positive, got %v", s.name, s.pollingInterval)
	}
	host.SetPollingInterval(s.pollingInterval)

	s.mu.Lock()
	s.state = StateConfigured
	s.mu.Unlock()
	return nil
}

// Startup enables the sensor when it is configured to auto-enable. Otherwise it
// stays disabled until the host enables it.
func (s *SimpleSensor) Startup(host Host) error {
	if s.autoEnable {
		host.SetEnable(true)
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	s.logger.Debugw("sensor started", "auto_enable", s.autoEnable, "quantities", s.registry.Len())
	return nil
}

// Measure runs one polling cycle. With an unknown location the measurement holds no
// quantities. A source without a value at the location, or one that fails, only drops
// its own quantity.
func (s *SimpleSensor) Measure(host Host) Measurement {
	now := host.CurrentTimeMillis()
	m := NewMeasurement(s.name, now)

	var coords []float64
	ok := false
	if s.location != nil {
		coords, ok = s.location.Location()
	}
	if !ok || len(coords) < 2 {
		return m
	}
	m.Location = append([]float64(nil), coords...)

	for _, b := range s.registry.Bindings() {
		v, present, err := b.Source.Value(coords, now)
		if err != nil {
			s.logger.Warnw("sampling failed", "quantity", b.Name, "error", err)
			continue
		}
		if present {
			m.Set(b.Name, v, b.Units)
		}
	}
	return m
}
