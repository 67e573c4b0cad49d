// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

// Quantity is one named reading inside a measurement.
type Quantity struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Units string  `json:"units,omitempty"` // empty when the quantity has no units
}

// Measurement is the result of one polling cycle. Quantities keep the order in
// which their bindings were registered.
type Measurement struct {
	SensorType string     `json:"sensor_type"`
	Timestamp  int64      `json:"timestamp"`          // ms since Unix epoch
	Location   []float64  `json:"location,omitempty"` // absent when the location was unknown
	Quantities []Quantity `json:"quantities"`
}

// NewMeasurement returns an empty measurement for sensorType.
func NewMeasurement(sensorType string, timestamp int64) Measurement {
	return Measurement{
		SensorType: sensorType,
		Timestamp:  timestamp,
		Quantities: []Quantity{},
	}
}

// Set stores a value under name. A name that is already present keeps its
// position and takes the new value and units.
func (m *Measurement) Set(name string, value float64, units string) {
	for i := range m.Quantities {
		if m.Quantities[i].Name == name {
			m.Quantities[i].Value = value
			m.Quantities[i].Units = units
			return
		}
	}
	m.Quantities = append(m.Quantities, Quantity{Name: name, Value: value, Units: units})
}

// Get returns the quantity called name.
func (m Measurement) Get(name string) (Quantity, bool) {
	for _, q := range m.Quantities {
		if q.Name == name {
			return q, true
		}
	}
	return Quantity{}, false
}

// Names returns the quantity names in order.
func (m Measurement) Names() []string {
	names := make([]string, 0, len(m.Quantities))
	for _, q := range m.Quantities {
		names = append(names, q.Name)
	}
	return names
}

// Len returns the number of quantities.
func (m Measurement) Len() int { return len(m.Quantities) }
