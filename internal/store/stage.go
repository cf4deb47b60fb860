package store

import (
	"database/sql"
)

// Stage is one stage of the protocol a session ran with.
type Stage struct {
	Index       int    `json:"index"`
	Label       int    `json:"label"`
	Description string `json:"description"`
	Target      int    `json:"target"`
}

// StageRepository stores the protocol used by each session.
type StageRepository struct {
	db *sql.DB
}

// Stages returns the stage repository for this store.
func (s *Store) Stages() *StageRepository {
	return &StageRepository{db: s.db}
}

// Save replaces the stages recorded for a session.
func (r *StageRepository) Save(sessionID string, stages []Stage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM session_stages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}

	for _, st := range stages {
		_, err := tx.Exec(
			`INSERT INTO session_stages (session_id, stage_index, label, description, target)
			 VALUES (?, ?, ?, ?, ?)`,
			sessionID, st.Index, st.Label, st.Description, st.Target,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession returns the stages of a session in protocol order.
func (r *StageRepository) ListBySession(sessionID string) ([]Stage, error) {
	rows, err := r.db.Query(
		`SELECT stage_index, label, description, target
		 FROM session_stages WHERE session_id = ? ORDER BY stage_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.Index, &st.Label, &st.Description, &st.Target); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}

	return stages, rows.Err()
}
