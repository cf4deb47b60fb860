package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per collection run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			completed INTEGER NOT NULL DEFAULT 0,
			stages_done INTEGER NOT NULL DEFAULT 0,
			output_path TEXT NOT NULL DEFAULT '',
			row_count INTEGER NOT NULL DEFAULT 0
		)`,

		// Session stages table - the protocol a session ran with
		`CREATE TABLE IF NOT EXISTS session_stages (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			stage_index INTEGER NOT NULL,
			label INTEGER NOT NULL,
			description TEXT NOT NULL,
			target INTEGER NOT NULL,
			PRIMARY KEY (session_id, stage_index)
		)`,

		// Samples table - normalized feature vectors in capture order
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			label INTEGER NOT NULL,
			features TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_session_id ON samples(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
