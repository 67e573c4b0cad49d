// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps turns an NMEA stream into a sensor platform location.
package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // e.g. "23/03/94"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
	Altitude   float64 `json:"alt"`         // metres above mean sea level, from GGA
	Quality    string  `json:"quality"`     // GGA fix quality, "0" is invalid
	Satellites int64   `json:"satellites"`
}

// Valid reports whether the last RMC sentence carried a usable position.
func (f Fix) Valid() bool {
	return f.Validity == "A"
}

// HasAltitude reports whether the last GGA sentence carried a usable altitude.
func (f Fix) HasAltitude() bool {
	return f.Quality != "" && f.Quality != "0"
}
