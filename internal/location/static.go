// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package location provides simulated platform locations for sensors.
package location

import "sync"

// Static is a platform that stays where it is put. It starts out unknown unless
// created with coordinates.
type Static struct {
	mu     sync.RWMutex
	coords []float64
}

// NewStatic returns a platform at coords. With no coords the location is unknown.
func NewStatic(coords ...float64) *Static {
	s := &Static{}
	if len(coords) > 0 {
		s.Set(coords...)
	}
	return s
}

// Set moves the platform.
func (s *Static) Set(coords ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = append([]float64(nil), coords...)
}

// Clear makes the location unknown.
func (s *Static) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = nil
}

// Location returns a copy of the current coordinates.
func (s *Static) Location() ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coords == nil {
		return nil, false
	}
	return append([]float64(nil), s.coords...), true
}
