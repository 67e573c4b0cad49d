// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"io"
	"math"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Tracker accumulates NMEA sentences into a Fix and reports it as a location in metres
// east and north of a fixed origin, followed by the altitude when the receiver has one.
type Tracker struct {
	origin *geo.Point
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	fix    Fix
	seen   bool
	errors int
}

// NewTracker returns a tracker projecting around the origin at lat, lon.
func NewTracker(lat, lon float64, logger *zap.SugaredLogger) *Tracker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Tracker{
		origin: geo.NewPoint(lat, lon),
		logger: logger,
	}
}

// Feed parses one NMEA line. Lines that are not sentences are ignored; sentences
// that fail to parse are returned as errors and leave the fix untouched.
func (t *Tracker) Feed(line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		t.mu.Lock()
		t.errors++
		t.mu.Unlock()
		return errors.Wrapf(err, "parse %q", line)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch sentence.DataType() {
	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		t.fix.Time = m.Time.String()
		t.fix.Date = m.Date.String()
		t.fix.Latitude = m.Latitude
		t.fix.Longitude = m.Longitude
		t.fix.SpeedKnots = m.Speed
		t.fix.CourseDeg = m.Course
		t.fix.Validity = string(m.Validity)
		t.seen = true
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		t.fix.Altitude = m.Altitude
		t.fix.Quality = string(m.FixQuality)
		t.fix.Satellites = int64(m.NumSatellites)
	default:
		// GSA, GSV and friends carry nothing the location needs
	}
	return nil
}

// Fix returns the accumulated fix. ok is false until an RMC sentence has been seen.
func (t *Tracker) Fix() (Fix, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fix, t.seen
}

// ParseErrors returns how many sentences failed to parse.
func (t *Tracker) ParseErrors() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errors
}

// Location returns [east, north] in metres from the origin, plus the altitude when
// known. It is unknown until the receiver reports a valid position.
func (t *Tracker) Location() ([]float64, bool) {
	fix, ok := t.Fix()
	if !ok || !fix.Valid() {
		return nil, false
	}

	p := geo.NewPoint(fix.Latitude, fix.Longitude)
	dist := t.origin.GreatCircleDistance(p) * 1000
	bearing := t.origin.BearingTo(p) * math.Pi / 180
	coords := []float64{dist * math.Sin(bearing), dist * math.Cos(bearing)}
	if fix.HasAltitude() {
		coords = append(coords, fix.Altitude)
	}
	return coords, true
}

// Run feeds every line of r into the tracker until r is exhausted or ctx is done.
// A blocked read only returns once the caller closes the underlying port.
func (t *Tracker) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Feed(scanner.Text()); err != nil {
			// noisy receivers emit partial sentences
			t.logger.Debugw("skipping NMEA sentence", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read NMEA stream")
	}
	return ctx.Err()
}
