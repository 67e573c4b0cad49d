// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensor

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/relabs-tech/sim_sentuator/internal/field"
)

// Binding associates a named quantity and its units with the source that supplies it.
type Binding struct {
	Name   string
	Units  string
	Source field.Source
}

// Registry is an ordered list of bindings. Duplicate names are kept, and every
// binding is sampled on each poll.
type Registry struct {
	mu       sync.RWMutex
	bindings []Binding
}

// Register appends a binding. Only an empty name or a nil source is rejected.
func (r *Registry) Register(name, units string, source field.Source) error {
	if name == "" {
		return errors.New("quantity name is required")
	}
	if source == nil {
		return errors.Errorf("quantity %q has no source", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, Binding{Name: name, Units: units, Source: source})
	return nil
}

// Bindings returns a copy of the bindings in registration order.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
