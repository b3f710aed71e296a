// CLAUDE:SUMMARY SQLite store for configured data source URLs (survey, points, geojson), their availability checks and load history.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Source kinds known to the dashboard.
const (
	KindSurvey  = "survey"
	KindPoints  = "points"
	KindGeoJSON = "geojson"
)

// ErrNotFound is returned when a source ID has no row.
var ErrNotFound = errors.New("source not found")

// Definition is the configured default for one source.
type Definition struct {
	ID          string
	Kind        string
	Description string
	URL         string
}

// Source represents a row from the data_sources table.
type Source struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	LastStatus  *int    `json:"last_status,omitempty"`
	LastError   *string `json:"last_error,omitempty"`
	UpdatedAt   int64   `json:"updated_at"`
}

// DB manages the data_sources and load_history SQLite tables.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures both
// tables exist.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS data_sources (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			url          TEXT NOT NULL DEFAULT '',
			last_check   INTEGER,
			last_status  INTEGER,
			last_error   TEXT,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS load_history (
			id           TEXT PRIMARY KEY,
			source_id    TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			duration_ms  INTEGER NOT NULL,
			row_count    INTEGER NOT NULL DEFAULT 0,
			total        INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_load_history_started ON load_history(started_at)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the SQLite connection.
func (s *DB) Close() error {
	return s.db.Close()
}

// Seed inserts a row per definition. A stored URL is kept so that SetURL
// overrides survive restarts; only an empty stored URL is filled in.
func (s *DB) Seed(defs []Definition) error {
	const q = `INSERT INTO data_sources
		(id, kind, description, url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET url = excluded.url, updated_at = excluded.updated_at
		WHERE data_sources.url = '' AND excluded.url != ''`

	now := time.Now().Unix()
	for _, d := range defs {
		if _, err := s.db.Exec(q, d.ID, d.Kind, d.Description, d.URL, now); err != nil {
			return fmt.Errorf("seed %s: %w", d.ID, err)
		}
	}
	return nil
}

// GetURL returns the current URL of a source. An unset URL is "".
func (s *DB) GetURL(id string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT url FROM data_sources WHERE id = ?`, id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get url for %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", id, err)
	}
	return url, nil
}

// SetURL overrides the URL of a source.
func (s *DB) SetURL(id, url string) error {
	res, err := s.db.Exec(
		`UPDATE data_sources SET url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set url for %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *DB) UpdateCheck(id string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE data_sources SET last_check = ?, last_status = ?, last_error = ? WHERE id = ?`,
		time.Now().Unix(), status, errPtr, id,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", id, err)
	}
	return nil
}

// ListSources returns all sources ordered by id.
func (s *DB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT id, kind, description, url,
		last_check, last_status, last_error, updated_at
		FROM data_sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Kind, &src.Description, &src.URL,
			&src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
