package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"nautilus/internal/errs"
	"nautilus/internal/model"
)

// scanGravityRow reads one row of the gravity table into a model.GravityRecord.
func scanGravityRow(row interface {
	Scan(dest ...interface{}) error
}) (*model.GravityRecord, error) {
	var g model.GravityRecord
	var lastAccessed, lastWritten sql.NullTime
	var tagsJSON string
	var chamber string

	err := row.Scan(
		&g.Path, &g.LineStart, &g.LineEnd,
		&g.AccessCount, &g.ReferenceCount, &g.ExplicitImportance,
		&lastAccessed, &lastWritten, &g.CreatedAt,
		&g.SupersededBy, &tagsJSON, &chamber,
	)
	if err != nil {
		return nil, err
	}
	if lastAccessed.Valid {
		g.LastAccessedAt = &lastAccessed.Time
	}
	if lastWritten.Valid {
		g.LastWrittenAt = &lastWritten.Time
	}
	g.Chamber = model.Chamber(chamber)
	_ = json.Unmarshal([]byte(tagsJSON), &g.Tags)
	return &g, nil
}

const gravityColumns = `path, line_start, line_end, access_count, reference_count,
	explicit_importance, last_accessed_at, last_written_at, created_at,
	superseded_by, tags, chamber`

// GetGravityRecord returns the gravity row for key, or nil if the chunk does
// not exist.
func (s *Store) GetGravityRecord(key model.ChunkKey) (*model.GravityRecord, error) {
	row := s.QueryRow(`SELECT `+gravityColumns+` FROM gravity WHERE path = ? AND line_start = ? AND line_end = ?`,
		key.Path, key.LineStart, key.LineEnd)
	g, err := scanGravityRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifyErr(err)
	}
	return g, nil
}

// EnsureChunk creates a chunk row if it does not already exist, leaving an
// existing row untouched.
func (s *Store) EnsureChunk(key model.ChunkKey) error {
	_, err := s.Execute(
		`INSERT OR IGNORE INTO gravity (path, line_start, line_end) VALUES (?, ?, ?)`,
		key.Path, key.LineStart, key.LineEnd,
	)
	return err
}

// RecordAccess upserts the chunk, increments access_count, sets
// last_accessed_at to now, and appends an access_log row — Gravity's
// record_access operation (spec §4.2).
func (s *Store) RecordAccess(key model.ChunkKey, query string, score *float64, context string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.Exec(
			`INSERT INTO gravity (path, line_start, line_end, access_count, last_accessed_at)
			 VALUES (?, ?, ?, 1, ?)
			 ON CONFLICT(path, line_start, line_end) DO UPDATE SET
			   access_count = access_count + 1,
			   last_accessed_at = excluded.last_accessed_at`,
			key.Path, key.LineStart, key.LineEnd, now,
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO access_log (path, line_start, line_end, accessed_at, query, score, context)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			key.Path, key.LineStart, key.LineEnd, now, nullableString(query), score, nullableString(context),
		)
		return err
	})
}

// RecordWrite sets last_written_at = now() on every existing chunk at path,
// creating a whole-file chunk if none exists — Gravity's record_write.
func (s *Store) RecordWrite(path string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.Exec(`UPDATE gravity SET last_written_at = ? WHERE path = ?`, now, path)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		_, err = tx.Exec(
			`INSERT INTO gravity (path, line_start, line_end, last_written_at) VALUES (?, 0, 0, ?)`,
			path, now,
		)
		return err
	})
}

// Boost increments explicit_importance by amount (amount >= 0), creating the
// chunk first if absent.
func (s *Store) Boost(key model.ChunkKey, amount float64) error {
	if amount < 0 {
		return errs.New(errs.InvalidArgument, "boost amount must be >= 0")
	}
	return s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO gravity (path, line_start, line_end, explicit_importance)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(path, line_start, line_end) DO UPDATE SET
			   explicit_importance = explicit_importance + excluded.explicit_importance`,
			key.Path, key.LineStart, key.LineEnd, amount,
		)
		return err
	})
}

// Decay multiplies explicit_importance by (1 - decayRate) for every chunk
// inactive for >= 30 days and unwritten for >= 14 days, never below 0.
func (s *Store) Decay(decayRate float64) (int64, error) {
	res, err := s.Execute(
		`UPDATE gravity SET explicit_importance = MAX(explicit_importance * ?, 0)
		 WHERE (last_accessed_at IS NULL OR last_accessed_at <= datetime('now', '-30 days'))
		   AND (last_written_at IS NULL OR last_written_at <= datetime('now', '-14 days'))`,
		1-decayRate,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetTags overwrites the tags column for one chunk as a JSON array.
func (s *Store) SetTags(key model.ChunkKey, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = s.Execute(
		`INSERT INTO gravity (path, line_start, line_end, tags) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path, line_start, line_end) DO UPDATE SET tags = excluded.tags`,
		key.Path, key.LineStart, key.LineEnd, string(data),
	)
	return err
}

// SetChamber overwrites the chamber column for one chunk.
func (s *Store) SetChamber(key model.ChunkKey, chamber model.Chamber) error {
	_, err := s.Execute(
		`INSERT INTO gravity (path, line_start, line_end, chamber) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path, line_start, line_end) DO UPDATE SET chamber = excluded.chamber`,
		key.Path, key.LineStart, key.LineEnd, string(chamber),
	)
	return err
}

// AllGravityRecords returns every chunk in the store, for maintenance passes
// that must iterate the full set (auto_tag, promote/crystallize candidates).
func (s *Store) AllGravityRecords() ([]*model.GravityRecord, error) {
	rows, err := s.Query(`SELECT ` + gravityColumns + ` FROM gravity ORDER BY path, line_start`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GravityRecord
	for rows.Next() {
		g, err := scanGravityRow(rows)
		if err != nil {
			return nil, classifyErr(err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GravityRecordsForPath returns every chunk recorded at path.
func (s *Store) GravityRecordsForPath(path string) ([]*model.GravityRecord, error) {
	rows, err := s.Query(`SELECT `+gravityColumns+` FROM gravity WHERE path = ? ORDER BY line_start`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.GravityRecord
	for rows.Next() {
		g, err := scanGravityRow(rows)
		if err != nil {
			return nil, classifyErr(err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
