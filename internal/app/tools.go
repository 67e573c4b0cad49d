// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/relabs-tech/sim_sentuator/internal/config"
	"github.com/relabs-tech/sim_sentuator/internal/publish"
)

// Probe samples a single quantity's field at coords.
func Probe(q config.Quantity, coords []float64) (float64, bool, error) {
	fields, err := LoadFields([]config.Quantity{q})
	if err != nil {
		return 0, false, err
	}
	return fields[0].Source.Value(coords, 0)
}

// RunProbe prints the value of q at coords, or "no data" when the point is off the field.
func RunProbe(w io.Writer, q config.Quantity, coords []float64) error {
	v, ok, err := Probe(q, coords)
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintf(w, "%s: no data\n", q.Name)
		return err
	}
	if q.Units == "" {
		_, err = fmt.Fprintf(w, "%s = %g\n", q.Name, v)
	} else {
		_, err = fmt.Fprintf(w, "%s = %g %s\n", q.Name, v, q.Units)
	}
	return err
}

// RunHistory prints the most recent recorded measurements, newest first.
func RunHistory(ctx context.Context, w io.Writer, dbPath string, limit int) error {
	rec := publish.NewSQLiteRecorder(dbPath)
	if err := rec.Init(ctx); err != nil {
		return err
	}
	defer rec.Close()

	records, err := rec.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, err = fmt.Fprintln(w, "no measurements recorded")
		return err
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s  %s\n", r.ID, FormatMeasurement(r.Measurement)); err != nil {
			return err
		}
	}
	return nil
}
