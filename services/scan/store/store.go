// Package store keeps a sqlite history of decoded beacon readings.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tempbeacon-go/services/scan"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
  address      TEXT    NOT NULL,
  ts           TEXT    NOT NULL,
  temp_centi_c INTEGER NOT NULL,
  rh_pct       INTEGER NOT NULL,
  rssi         INTEGER NOT NULL,
  PRIMARY KEY (address, ts)
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`

const tsLayout = "2006-01-02T15:04:05.000Z"

// Row is one stored reading.
type Row struct {
	Address string
	At      time.Time
	CentiC  int16
	RH      int16
	RSSI    int16
}

// Store is a scan.Sink backed by sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func Open(path string) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db schema: %w", err)
	}
	return &Store{db: db}, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	params := "_busy_timeout=5000&_journal_mode=WAL"
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil
	}
	return "file:" + path + "?" + params, nil
}

// Publish implements scan.Sink. A repeat of the same address and timestamp
// is ignored.
func (s *Store) Publish(r scan.Reading) error {
	at := r.SeenAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO readings (address, ts, temp_centi_c, rh_pct, rssi) VALUES (?, ?, ?, ?, ?)`,
		r.Address, at.UTC().Format(tsLayout), r.Sample.CentiC, r.Sample.RHPercent, r.RSSI,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Latest returns up to limit readings for address, newest first.
func (s *Store) Latest(address string, limit int) ([]Row, error) {
	rows, err := s.db.Query(
		`SELECT address, ts, temp_centi_c, rh_pct, rssi FROM readings
		 WHERE address = ? ORDER BY ts DESC LIMIT ?`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row Row
			ts  string
		)
		if err := rows.Scan(&row.Address, &ts, &row.CentiC, &row.RH, &row.RSSI); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		if row.At, err = time.Parse(tsLayout, ts); err != nil {
			return nil, fmt.Errorf("parse ts %q: %w", ts, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
