// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package agent hosts polling sensors: it runs their lifecycle hooks, keeps the enable
// flag and the polling timer, and hands every measurement to the publishers.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// Sensor is a polled sensor as seen by the runner.
type Sensor interface {
	Name() string
	Setup(host sensor.Host) error
	Startup(host sensor.Host) error
	Measure(host sensor.Host) sensor.Measurement
}

// Publisher consumes measurements.
type Publisher interface {
	Publish(ctx context.Context, m sensor.Measurement) error
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, m sensor.Measurement) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, m sensor.Measurement) error { return f(ctx, m) }

// Runner drives one sensor. It implements sensor.Host.
type Runner struct {
	sensor     Sensor
	clock      clock.Clock
	publishers []Publisher
	logger     *zap.SugaredLogger

	mu       sync.RWMutex
	enabled  bool
	interval time.Duration
	polls    int
}

var _ sensor.Host = (*Runner)(nil)

// NewRunner returns a runner for s. A nil clock uses the wall clock.
func NewRunner(s Sensor, clk clock.Clock, logger *zap.SugaredLogger, publishers ...Publisher) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{
		sensor:     s,
		clock:      clk,
		publishers: publishers,
		logger:     logger.With("sensor", s.Name()),
	}
}

// SetPollingInterval sets the time between polls. It takes effect when Run starts.
func (r *Runner) SetPollingInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
}

// PollingInterval returns the time between polls.
func (r *Runner) PollingInterval() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interval
}

// SetEnable turns polling on or off.
func (r *Runner) SetEnable(enable bool) {
	r.mu.Lock()
	changed := r.enabled != enable
	r.enabled = enable
	r.mu.Unlock()
	if changed {
		r.logger.Infow("sensor enable changed", "enabled", enable)
	}
}

// Enabled reports whether polls produce measurements.
func (r *Runner) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// CurrentTimeMillis returns the runner's clock in milliseconds since the Unix epoch.
func (r *Runner) CurrentTimeMillis() int64 {
	return r.clock.Now().UnixMilli()
}

// Polls returns how many measurements have been taken.
func (r *Runner) Polls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.polls
}

// Start runs the sensor's Setup and Startup hooks.
func (r *Runner) Start() error {
	if err := r.sensor.Setup(r); err != nil {
		return errors.Wrap(err, "sensor setup")
	}
	if err := r.sensor.Startup(r); err != nil {
		return errors.Wrap(err, "sensor startup")
	}
	if r.PollingInterval() <= 0 {
		return errors.New("sensor did not set a polling interval")
	}
	return nil
}

// Run starts the sensor and polls it until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}

	interval := r.PollingInterval()
	ticker := r.clock.Ticker(interval)
	defer ticker.Stop()
	r.logger.Infow("polling", "interval", interval, "enabled", r.Enabled())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Poll(ctx)
		}
	}
}

// Poll takes one measurement and publishes it. It does nothing while the sensor is
// disabled. Publisher failures are logged and do not stop polling.
func (r *Runner) Poll(ctx context.Context) (sensor.Measurement, bool) {
	if !r.Enabled() {
		return sensor.Measurement{}, false
	}

	m := r.sensor.Measure(r)
	r.mu.Lock()
	r.polls++
	r.mu.Unlock()

	var errs error
	for _, p := range r.publishers {
		errs = multierr.Append(errs, p.Publish(ctx, m))
	}
	if errs != nil {
		r.logger.Warnw("publish failed", "error", errs)
	}
	return m, true
}
