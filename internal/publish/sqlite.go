// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/sim_sentuator/internal/sensor"
)

// Record is a stored measurement.
type Record struct {
	ID          string             `json:"id"`
	Measurement sensor.Measurement `json:"measurement"`
}

// SQLiteRecorder keeps every measurement in a SQLite database.
type SQLiteRecorder struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteRecorder returns a recorder for the database at path. Call Init before use.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	return &SQLiteRecorder{path: path}
}

// Init opens the database and creates the schema.
func (s *SQLiteRecorder) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.path)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "open %s", s.path)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

// Publish stores m under a fresh id.
func (s *SQLiteRecorder) Publish(ctx context.Context, m sensor.Measurement) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal measurement")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO measurements (id, sensor_type, timestamp, quantities, payload)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), m.SensorType, m.Timestamp, len(m.Quantities), payload)
	return errors.Wrap(err, "insert measurement")
}

// Recent returns up to limit measurements, newest first.
func (s *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, payload FROM measurements
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query measurements")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &payload); err != nil {
			return nil, errors.Wrap(err, "scan measurement")
		}
		if err := json.Unmarshal(payload, &rec.Measurement); err != nil {
			return nil, errors.Wrapf(err, "decode measurement %s", rec.ID)
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "query measurements")
}

// Count returns how many measurements are stored.
func (s *SQLiteRecorder) Count(ctx context.Context) (int, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&n)
	return n, errors.Wrap(err, "count measurements")
}

// Close closes the database. The recorder can be initialised again afterwards.
func (s *SQLiteRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteRecorder) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("recorder is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS measurements (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			sensor_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			quantities INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS measurements_timestamp ON measurements (timestamp);
	`)
	return err
}
