// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"context"

	"go.uber.org/zap"

	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// Log writes every measurement to a logger.
type Log struct {
	logger *zap.SugaredLogger
}

// NewLog returns a publisher logging at info level.
func NewLog(logger *zap.SugaredLogger) *Log {
	return &Log{logger: logger}
}

// Publish logs m with one field per quantity.
func (p *Log) Publish(_ context.Context, m sensor.Measurement) error {
	fields := make([]interface{}, 0, 6+2*len(m.Quantities))
	fields = append(fields, "sensor_type", m.SensorType, "timestamp", m.Timestamp)
	if m.Location != nil {
		fields = append(fields, "location", m.Location)
	}
	for _, q := range m.Quantities {
		fields = append(fields, q.Name, q.Value)
	}
	p.logger.Infow("measurement", fields...)
	return nil
}
