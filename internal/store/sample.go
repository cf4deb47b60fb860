package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Sample is an archived feature vector.
type Sample struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Label     int       `json:"label"`
	Features  []float64 `json:"features"`
}

// SampleRepository provides operations for archived samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// CreateBatch inserts samples for a session in a single transaction,
// numbering them in slice order, and updates the session row count.
func (r *SampleRepository) CreateBatch(sessionID string, samples []Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, seq, label, features) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, s := range samples {
		data, err := json.Marshal(s.Features)
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
		if _, err := stmt.Exec(sessionID, i, s.Label, string(data)); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`UPDATE sessions SET row_count = (SELECT COUNT(*) FROM samples WHERE session_id = ?) WHERE id = ?`,
		sessionID, sessionID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListBySession retrieves all samples of a session in capture order.
func (r *SampleRepository) ListBySession(sessionID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, label, features
		 FROM samples
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Seq, &s.Label, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &s.Features); err != nil {
			return nil, fmt.Errorf("decode sample %d: %w", s.ID, err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// CountByLabel returns the number of samples per label for a session.
func (r *SampleRepository) CountByLabel(sessionID string) (map[int]int, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) FROM samples WHERE session_id = ? GROUP BY label`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var label, n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}

	return counts, rows.Err()
}
