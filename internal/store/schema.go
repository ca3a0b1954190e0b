package store

// initialize creates the gravity, access_log, and mirrors tables if they do
// not already exist. Schema creation is idempotent: CREATE TABLE IF NOT
// EXISTS throughout, matching the teacher's LocalStore.initialize shape.
func (s *Store) initialize() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS gravity (
			path TEXT NOT NULL,
			line_start INTEGER NOT NULL DEFAULT 0,
			line_end INTEGER NOT NULL DEFAULT 0,
			access_count INTEGER NOT NULL DEFAULT 0,
			reference_count INTEGER NOT NULL DEFAULT 0,
			explicit_importance REAL NOT NULL DEFAULT 0,
			last_accessed_at DATETIME,
			last_written_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			superseded_by TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			chamber TEXT NOT NULL DEFAULT 'unknown',
			PRIMARY KEY (path, line_start, line_end)
		)`,
		`CREATE TABLE IF NOT EXISTS access_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL,
			line_start INTEGER NOT NULL DEFAULT 0,
			line_end INTEGER NOT NULL DEFAULT 0,
			accessed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			query TEXT,
			score REAL,
			context TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_log_accessed_at ON access_log(accessed_at)`,
		`CREATE TABLE IF NOT EXISTS mirrors (
			event_key TEXT NOT NULL,
			granularity TEXT NOT NULL,
			path TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (event_key, granularity)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mirrors_path ON mirrors(path)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return classifyErr(err)
		}
	}
	return nil
}
