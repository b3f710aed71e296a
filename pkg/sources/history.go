package sources

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Load statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Load is one row of load_history.
type Load struct {
	ID        string        `json:"id"`
	SourceID  string        `json:"source_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Rows      int           `json:"rows"`
	Total     int           `json:"total"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// RecordLoad appends a load attempt. A missing ID gets a fresh UUID, which
// is returned.
func (s *DB) RecordLoad(l Load) (string, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	var errPtr *string
	if l.Error != "" {
		errPtr = &l.Error
	}
	_, err := s.db.Exec(`INSERT INTO load_history
		(id, source_id, started_at, duration_ms, row_count, total, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SourceID, l.StartedAt.UnixMilli(), l.Duration.Milliseconds(),
		l.Rows, l.Total, l.Status, errPtr,
	)
	if err != nil {
		return "", fmt.Errorf("record load for %s: %w", l.SourceID, err)
	}
	return l.ID, nil
}

// ListLoads returns the most recent loads first. limit <= 0 means 50.
func (s *DB) ListLoads(limit int) ([]Load, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, source_id, started_at, duration_ms, row_count, total, status, error
		FROM load_history ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var out []Load
	for rows.Next() {
		var (
			l          Load
			startedMS  int64
			durationMS int64
			errText    *string
		)
		if err := rows.Scan(&l.ID, &l.SourceID, &startedMS, &durationMS,
			&l.Rows, &l.Total, &l.Status, &errText); err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		l.StartedAt = time.UnixMilli(startedMS)
		l.Duration = time.Duration(durationMS) * time.Millisecond
		if errText != nil {
			l.Error = *errText
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
